package ingest

import (
	"context"
	"io"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chunk"
)

// Extractor returns the plain text of a PDF on disk, pages joined by a blank line.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

// Splitter cuts cleaned text into ordered, overlapping chunks.
type Splitter interface {
	Split(text string) ([]string, error)
}

// FileStore persists uploaded files by base name.
type FileStore interface {
	Save(name string, r io.Reader) (string, error)
	Stat(name string) (string, error)
}

// Embedder vectorizes chunk texts in input order. Vectors must be unit length.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// ChunkWriter replaces a document's chunk records in the vector index.
type ChunkWriter interface {
	Replace(ctx context.Context, pdfName string, records []chunk.Record) error
}

// Scheduler runs indexing work in the background.
type Scheduler interface {
	Submit(name string, fn TaskFunc) (string, error)
}
