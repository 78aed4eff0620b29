package chat

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chat"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type mockSearcher struct {
	queryFn func(ctx context.Context, vec []float32, k int) ([]retrieval.Match, error)
}

func (m *mockSearcher) Query(ctx context.Context, vec []float32, k int) ([]retrieval.Match, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, vec, k)
	}
	return nil, nil
}

type mockCompleter struct {
	completeFn func(ctx context.Context, msgs []chat.Message, maxTokens int, temp float64) (string, error)
	got        []chat.Message
}

func (m *mockCompleter) Complete(ctx context.Context, msgs []chat.Message, maxTokens int, temp float64) (string, error) {
	m.got = msgs
	if m.completeFn != nil {
		return m.completeFn(ctx, msgs, maxTokens, temp)
	}
	return "answer", nil
}

func request(t *testing.T, contents ...string) chat.Request {
	t.Helper()
	msgs := make([]chat.Message, 0, len(contents))
	for i, c := range contents {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		m, err := chat.NewMessage(role, c)
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		msgs = append(msgs, m)
	}
	r, err := chat.NewRequest(msgs, nil, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return r
}

func matchesWithScores(scores ...float64) []retrieval.Match {
	out := make([]retrieval.Match, len(scores))
	for i, s := range scores {
		out[i] = retrieval.Match{
			ID:         "a.pdf_chunk_" + string(rune('0'+i)),
			Text:       "chunk-" + string(rune('A'+i)),
			PDFName:    "a.pdf",
			ChunkIndex: i,
			Score:      s,
		}
	}
	return out
}

// --- Tests ---

func TestComplete_EmptyRequest(t *testing.T) {
	svc := New(&mockEmbedder{}, &mockSearcher{}, &mockCompleter{})
	empty, _ := chat.NewRequest(nil, nil, nil)

	_, err := svc.Complete(context.Background(), empty)
	if !errors.Is(err, domain.ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}

func TestComplete_Grounded(t *testing.T) {
	var gotText string
	var gotK int
	comp := &mockCompleter{}
	svc := New(
		&mockEmbedder{embedFn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
			gotText = text
			return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
		}},
		&mockSearcher{queryFn: func(_ context.Context, _ []float32, k int) ([]retrieval.Match, error) {
			gotK = k
			// relevance: 0.95, 0.5 (kept, inclusive), 0.45 (dropped)
			return matchesWithScores(0.9, 0.0, -0.1), nil
		}},
		comp,
	)

	reply, err := svc.Complete(context.Background(), request(t, "What is in the report?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotText != "What is in the report?" || gotK != DefaultTopK {
		t.Errorf("embed text=%q k=%d", gotText, gotK)
	}
	if reply.Outcome() != chat.OutcomeGrounded || reply.Text() != "answer" {
		t.Errorf("unexpected reply: outcome=%s text=%q", reply.Outcome(), reply.Text())
	}

	src := reply.Sources()
	if len(src) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(src))
	}
	if src[0].RelevanceScore != 0.9 || src[1].RelevanceScore != 0.0 {
		t.Errorf("sources must carry raw scores: %+v", src)
	}

	system := comp.got[0]
	if system.Role() != chat.RoleSystem {
		t.Fatalf("first message must be system, got %s", system.Role())
	}
	if !strings.Contains(system.Content(), "Context from PDFs:\nchunk-A\n\nchunk-B\n\nRemember") {
		t.Errorf("context not embedded as expected:\n%s", system.Content())
	}
	if strings.Contains(system.Content(), "chunk-C") {
		t.Error("chunk below threshold leaked into prompt")
	}
}

func TestComplete_GeneralWhenNothingPasses(t *testing.T) {
	comp := &mockCompleter{}
	svc := New(&mockEmbedder{}, &mockSearcher{queryFn: func(context.Context, []float32, int) ([]retrieval.Match, error) {
		return matchesWithScores(-0.2, -0.5), nil
	}}, comp)

	reply, err := svc.Complete(context.Background(), request(t, "hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Outcome() != chat.OutcomeGeneral {
		t.Errorf("expected general outcome, got %s", reply.Outcome())
	}
	if len(reply.Sources()) != 0 {
		t.Errorf("expected no sources, got %v", reply.Sources())
	}
	if comp.got[0].Content() != GeneralPrompt {
		t.Errorf("expected general prompt, got %q", comp.got[0].Content())
	}
}

func TestComplete_EmptyIndexIsGeneral(t *testing.T) {
	svc := New(&mockEmbedder{}, &mockSearcher{}, &mockCompleter{})
	reply, _ := svc.Complete(context.Background(), request(t, "hello"))
	if reply.Outcome() != chat.OutcomeGeneral {
		t.Errorf("expected general outcome, got %s", reply.Outcome())
	}
}

func TestComplete_HistoryWindow(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		want     []string
	}{
		{
			name:     "seven prior plus active query",
			contents: []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "query"},
			want:     []string{"m4", "m5", "m6", "m7", "query"},
		},
		{
			name:     "exactly five",
			contents: []string{"m1", "m2", "m3", "m4", "query"},
			want:     []string{"m1", "m2", "m3", "m4", "query"},
		},
		{
			name:     "three messages all forwarded",
			contents: []string{"m1", "m2", "query"},
			want:     []string{"m1", "m2", "query"},
		},
		{
			name:     "single message",
			contents: []string{"query"},
			want:     []string{"query"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &mockCompleter{}
			svc := New(&mockEmbedder{}, &mockSearcher{}, comp)

			if _, err := svc.Complete(context.Background(), request(t, tt.contents...)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(comp.got) != len(tt.want)+1 {
				t.Fatalf("expected system + %d history messages, got %d", len(tt.want), len(comp.got))
			}
			if comp.got[0].Role() != chat.RoleSystem {
				t.Errorf("first message role = %s, want system", comp.got[0].Role())
			}
			for i, w := range tt.want {
				if comp.got[i+1].Content() != w {
					t.Errorf("history[%d] = %q, want %q", i, comp.got[i+1].Content(), w)
				}
			}
		})
	}
}

func TestComplete_ContextKeepsNonNegativeScoresInOrder(t *testing.T) {
	comp := &mockCompleter{}
	svc := New(&mockEmbedder{}, &mockSearcher{queryFn: func(context.Context, []float32, int) ([]retrieval.Match, error) {
		return matchesWithScores(0.9, 0.3, 0.6, -0.2), nil
	}}, comp)

	reply, err := svc.Complete(context.Background(), request(t, "q"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Outcome() != chat.OutcomeGrounded {
		t.Fatalf("expected grounded outcome, got %s", reply.Outcome())
	}

	want := ContextPrompt([]string{"chunk-A", "chunk-B", "chunk-C"})
	if comp.got[0].Content() != want {
		t.Errorf("system prompt = %q, want %q", comp.got[0].Content(), want)
	}
	if !strings.Contains(comp.got[0].Content(), "chunk-A\n\nchunk-B\n\nchunk-C\n") {
		t.Error("context chunks must be joined by a blank line in search order")
	}
	if strings.Contains(comp.got[0].Content(), "chunk-D") {
		t.Error("negative score must not reach the context")
	}
	if len(reply.Sources()) != 3 {
		t.Errorf("expected 3 sources, got %d", len(reply.Sources()))
	}
}

func TestComplete_ClientSystemMessageIsForwarded(t *testing.T) {
	comp := &mockCompleter{}
	svc := New(&mockEmbedder{}, &mockSearcher{}, comp)

	sys := chat.SystemMessage("answer in French")
	user, _ := chat.NewMessage(chat.RoleUser, "hi")
	req, _ := chat.NewRequest([]chat.Message{sys, user}, nil, nil)

	if _, err := svc.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comp.got) != 3 || comp.got[1].Content() != "answer in French" {
		t.Errorf("client system message must be kept verbatim: %+v", comp.got)
	}
}

func TestComplete_PassesGenerationParams(t *testing.T) {
	var gotMax int
	var gotTemp float64
	comp := &mockCompleter{completeFn: func(_ context.Context, _ []chat.Message, m int, temp float64) (string, error) {
		gotMax, gotTemp = m, temp
		return "ok", nil
	}}
	svc := New(&mockEmbedder{}, &mockSearcher{}, comp)

	maxTokens, temp := 42, 0.1
	user, _ := chat.NewMessage(chat.RoleUser, "hi")
	req, _ := chat.NewRequest([]chat.Message{user}, &maxTokens, &temp)
	if _, err := svc.Complete(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMax != 42 || gotTemp != 0.1 {
		t.Errorf("max_tokens=%d temperature=%g", gotMax, gotTemp)
	}
}

func TestComplete_DegradedOnDependencyFailure(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		svc  *Service
	}{
		{
			name: "embedding",
			svc: New(&mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
				return domain.EmbeddingResult{}, boom
			}}, &mockSearcher{}, &mockCompleter{}),
		},
		{
			name: "index",
			svc: New(&mockEmbedder{}, &mockSearcher{queryFn: func(context.Context, []float32, int) ([]retrieval.Match, error) {
				return nil, boom
			}}, &mockCompleter{}),
		},
		{
			name: "completion",
			svc: New(&mockEmbedder{}, &mockSearcher{}, &mockCompleter{
				completeFn: func(context.Context, []chat.Message, int, float64) (string, error) { return "", boom },
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.ChatRepliesTotal.WithLabelValues("degraded"))

			reply, err := tt.svc.Complete(context.Background(), request(t, "hi"))
			if err != nil {
				t.Fatalf("degraded reply must not be an error, got %v", err)
			}
			if reply.Outcome() != chat.OutcomeDegraded || reply.Text() != chat.FallbackText {
				t.Errorf("unexpected reply: %s %q", reply.Outcome(), reply.Text())
			}
			if !errors.Is(reply.Cause(), boom) {
				t.Errorf("cause = %v", reply.Cause())
			}

			after := testutil.ToFloat64(metrics.ChatRepliesTotal.WithLabelValues("degraded"))
			if after-before != 1 {
				t.Errorf("degraded counter delta = %v, want 1", after-before)
			}
		})
	}
}

func TestComplete_Options(t *testing.T) {
	var gotK int
	comp := &mockCompleter{}
	svc := New(&mockEmbedder{}, &mockSearcher{queryFn: func(_ context.Context, _ []float32, k int) ([]retrieval.Match, error) {
		gotK = k
		return matchesWithScores(0.5), nil // relevance 0.75
	}}, comp, WithTopK(8), WithMinRelevance(0.8), WithHistoryWindow(1))

	reply, _ := svc.Complete(context.Background(), request(t, "a", "b", "c"))
	if gotK != 8 {
		t.Errorf("k = %d, want 8", gotK)
	}
	if reply.Outcome() != chat.OutcomeGeneral {
		t.Errorf("0.75 < 0.8 should fall back to general, got %s", reply.Outcome())
	}
	if len(comp.got) != 2 || comp.got[1].Content() != "c" {
		t.Errorf("history window 1 not applied: %d messages", len(comp.got))
	}
}

func TestContextPrompt(t *testing.T) {
	p := ContextPrompt([]string{"one", "two"})
	if !strings.Contains(p, "Context from PDFs:\none\n\ntwo\n\nRemember to be helpful") {
		t.Errorf("unexpected prompt:\n%s", p)
	}
	if strings.Contains(p, "{context}") {
		t.Error("placeholder not replaced")
	}
}
