package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chat"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingServer answers each input i with vector [len(input_i)] and returns data in reverse order.
func embeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Embedding: []float32{float32(len(req.Input[i]))},
				Index:     i,
			})
		}
		resp.Usage.PromptTokens = len(req.Input)
		resp.Usage.TotalTokens = len(req.Input)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(url string, batch int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:    "test-key",
		BaseURL:   url,
		Model:     "text-embedding-3-small",
		BatchSize: batch,
		Provider:  "test",
		Logger:    zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	server := embeddingServer(t, nil)
	defer server.Close()

	res, err := newTestEmbedder(server.URL, 0).Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(res.Embedding) != 1 || res.Embedding[0] != 5 {
		t.Errorf("unexpected embedding: %v", res.Embedding)
	}
	if res.TotalTokens != 1 {
		t.Errorf("TotalTokens = %d, want 1", res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_RestoresOrderAcrossRequests(t *testing.T) {
	var calls int32
	server := embeddingServer(t, &calls)
	defer server.Close()

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	res, err := newTestEmbedder(server.URL, 2).BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 requests for 5 inputs at batch size 2, got %d", calls)
	}
	if len(res.Embeddings) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(res.Embeddings), len(texts))
	}
	for i, v := range res.Embeddings {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("embedding %d = %v, want [%d]", i, v, len(texts[i]))
		}
	}
	if res.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", res.TotalTokens)
	}
}

func TestEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse{Object: "list"})
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL, 0).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL, 0).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("expected provider message in error, got %q", err.Error())
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestCompleter_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,` +
			`"message":{"role":"assistant","content":"Paris."},"finish_reason":"stop"}],` +
			`"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`))
	}))
	defer server.Close()

	c := NewCompleter(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-2024-08-06"})
	user, _ := chat.NewMessage(chat.RoleUser, "Capital of France?")
	text, err := c.Complete(context.Background(), []chat.Message{chat.SystemMessage("be brief"), user}, 1000, 0.7)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Paris." {
		t.Errorf("text = %q", text)
	}
	if got.Model != "gpt-4o-2024-08-06" || got.MaxTokens != 1000 {
		t.Errorf("unexpected request: model=%q max_tokens=%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "Capital of France?" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestCompleter_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	c := NewCompleter(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := c.Complete(context.Background(), []chat.Message{chat.SystemMessage("x")}, 10, 0.7)
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
}

func TestCompleter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c := NewCompleter(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := c.Complete(context.Background(), []chat.Message{chat.SystemMessage("x")}, 10, 0.7)
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "context length exceeded") {
		t.Errorf("expected provider message, got %q", err.Error())
	}
}

func TestCompleter_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,` +
			`"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c := NewCompleter(&Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	if _, err := c.Complete(context.Background(), []chat.Message{chat.SystemMessage("x")}, 10, 0); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from request body: %v", body)
	}
	if temp <= 0 || temp > 1e-30 {
		t.Errorf("temperature = %g, want a value indistinguishable from zero", temp)
	}
}

func TestWireTemperature(t *testing.T) {
	if got := wireTemperature(0.7); got != float32(0.7) {
		t.Errorf("wireTemperature(0.7) = %g", got)
	}
	if got := wireTemperature(0); got == 0 {
		t.Error("zero temperature must map to a non-zero value")
	}
}
