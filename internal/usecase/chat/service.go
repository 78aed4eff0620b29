package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain/chat"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
	"github.com/kailas-cloud/docchat/internal/logger"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

// Defaults for the grounding pipeline.
const (
	DefaultTopK          = 4
	DefaultMinRelevance  = 0.5
	DefaultHistoryWindow = 5
)

// Service answers chat requests grounded in indexed PDF chunks.
type Service struct {
	embed     Embedder
	chunks    ChunkSearcher
	completer Completer

	topK          int
	minRelevance  float64
	historyWindow int
	logger        *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets how many chunks are retrieved per query.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithMinRelevance sets the inclusive threshold on (1+similarity)/2.
func WithMinRelevance(v float64) Option {
	return func(s *Service) { s.minRelevance = v }
}

// WithHistoryWindow sets how many trailing request messages are forwarded.
func WithHistoryWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWindow = n
		}
	}
}

// WithLogger sets the fallback logger used outside request scope.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a chat service.
func New(embed Embedder, chunks ChunkSearcher, completer Completer, opts ...Option) *Service {
	s := &Service{
		embed:         embed,
		chunks:        chunks,
		completer:     completer,
		topK:          DefaultTopK,
		minRelevance:  DefaultMinRelevance,
		historyWindow: DefaultHistoryWindow,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Complete answers req. Only an empty request is an error; any dependency
// failure after validation produces a degraded reply carrying chat.FallbackText.
func (s *Service) Complete(ctx context.Context, req chat.Request) (chat.Reply, error) {
	query, err := req.ActiveQuery()
	if err != nil {
		return chat.Reply{}, fmt.Errorf("active query: %w", err)
	}

	reply, err := s.answer(ctx, req, query)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Chat completion degraded",
			zap.Int("messages", len(req.Messages())),
			zap.Error(err),
		)
		reply = chat.Degraded(err)
	}

	metrics.ChatRepliesTotal.WithLabelValues(string(reply.Outcome())).Inc()
	return reply, nil
}

func (s *Service) answer(ctx context.Context, req chat.Request, query string) (chat.Reply, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.chunks.Query(ctx, emb.Embedding, s.topK)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("query chunks: %w", err)
	}

	kept, sources := retrieval.Retain(matches, s.minRelevance)
	metrics.RetrievedChunks.WithLabelValues("retrieved").Observe(float64(len(matches)))
	metrics.RetrievedChunks.WithLabelValues("kept").Observe(float64(len(kept)))

	outcome := chat.OutcomeGeneral
	prompt := GeneralPrompt
	if len(kept) > 0 {
		texts := make([]string, len(kept))
		for i, m := range kept {
			texts[i] = m.Text
		}
		prompt = ContextPrompt(texts)
		outcome = chat.OutcomeGrounded
	}

	history := req.History(s.historyWindow)
	messages := make([]chat.Message, 0, len(history)+1)
	messages = append(messages, chat.SystemMessage(prompt))
	messages = append(messages, history...)

	text, err := s.completer.Complete(ctx, messages, req.MaxTokens(), req.Temperature())
	if err != nil {
		return chat.Reply{}, fmt.Errorf("complete: %w", err)
	}

	logger.FromContext(ctx, s.logger).Debug("Chat reply generated",
		zap.String("outcome", string(outcome)),
		zap.Int("retrieved", len(matches)),
		zap.Int("kept", len(kept)),
	)

	return chat.Answered(text, outcome, sources), nil
}
