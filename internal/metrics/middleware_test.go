package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/upload/text/{filename}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/upload/text/{filename}", "200"))

	for _, name := range []string{"a.pdf", "b.pdf"} {
		req := httptest.NewRequest(http.MethodGet, "/upload/text/"+name, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/upload/text/{filename}", "200"))
	if after-before != 2 {
		t.Errorf("expected both filenames under one pattern label, delta=%v", after-before)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/chat/chat-completions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadRequest)
			w.WriteHeader(http.StatusInternalServerError) // ignored, first status wins
			return
		}
		_, _ = w.Write([]byte(`{"response":"hi"}`))
	})

	tests := []struct {
		url    string
		status string
	}{
		{"/chat/chat-completions", "200"},
		{"/chat/chat-completions?fail=1", "400"},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/chat/chat-completions", tc.status))
			req := httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(`{"messages":[]}`))
			r.ServeHTTP(httptest.NewRecorder(), req)
			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/chat/chat-completions", tc.status))
			if after-before != 1 {
				t.Errorf("expected one request with status %s, delta=%v", tc.status, after-before)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestBytes) == 0 {
		t.Error("expected request size observations")
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404"))
	if after-before != 1 {
		t.Errorf("expected unmatched route counted as unknown, delta=%v", after-before)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	ChatRepliesTotal.WithLabelValues("grounded").Inc()
	if v := testutil.ToFloat64(ChatRepliesTotal.WithLabelValues("grounded")); v < 1 {
		t.Errorf("expected grounded >= 1, got %v", v)
	}
}
