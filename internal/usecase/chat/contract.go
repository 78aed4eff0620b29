package chat

import (
	"context"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chat"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
)

// Embedder vectorizes the active query. Vectors must be unit length.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ChunkSearcher returns the k nearest chunks, most similar first.
type ChunkSearcher interface {
	Query(ctx context.Context, vec []float32, k int) ([]retrieval.Match, error)
}

// Completer generates the assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message, maxTokens int, temperature float64) (string, error)
}
