package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chunk"
	domingest "github.com/kailas-cloud/docchat/internal/domain/ingest"
	"github.com/kailas-cloud/docchat/internal/logger"
	"github.com/kailas-cloud/docchat/internal/text"
)

// File is one uploaded file.
type File struct {
	Name    string
	Content io.Reader
}

// Service turns PDFs into indexed chunks.
type Service struct {
	files     FileStore
	extractor Extractor
	splitter  Splitter
	embed     Embedder
	chunks    ChunkWriter
	scheduler Scheduler
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the fallback logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the timestamp source for chunk records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an ingestion service.
func New(
	files FileStore, extractor Extractor, splitter Splitter,
	embed Embedder, chunks ChunkWriter, scheduler Scheduler,
	opts ...Option,
) *Service {
	s := &Service{
		files:     files,
		extractor: extractor,
		splitter:  splitter,
		embed:     embed,
		chunks:    chunks,
		scheduler: scheduler,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsPDF reports whether name has a .pdf extension, in any case.
func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// Upload stores and processes files. Every name is checked before anything
// is written; the first non-PDF rejects the whole batch.
// Per-file failures after validation are reported in the results.
func (s *Service) Upload(ctx context.Context, files []File) ([]domingest.FileResult, error) {
	for _, f := range files {
		if !IsPDF(f.Name) {
			return nil, domain.NewNotPDF(f.Name)
		}
	}

	results := make([]domingest.FileResult, 0, len(files))
	for _, f := range files {
		if _, err := s.files.Save(f.Name, f.Content); err != nil {
			logger.FromContext(ctx, s.logger).Error("Failed to save upload",
				zap.String("filename", f.Name), zap.Error(err))
			results = append(results, domingest.Failed(f.Name, err))
			continue
		}
		results = append(results, s.Process(ctx, f.Name))
	}
	return results, nil
}

// Process extracts, cleans and chunks a stored file, then queues embedding and indexing.
func (s *Service) Process(ctx context.Context, filename string) domingest.FileResult {
	log := logger.FromContext(ctx, s.logger).With(zap.String("filename", filename))

	doc, err := s.prepare(ctx, filename)
	if err != nil {
		log.Error("Failed to process PDF", zap.Error(err))
		return domingest.Failed(filename, err)
	}

	taskID, err := s.schedule(doc)
	if err != nil {
		log.Error("Failed to schedule indexing", zap.Error(err))
		return domingest.Failed(filename, err)
	}

	log.Info("PDF processed, indexing scheduled",
		zap.String("task_id", taskID),
		zap.Int("chunks", len(doc.Chunks)),
		zap.Int("total_words", doc.Stats.TotalWords),
	)
	return domingest.Scheduled(filename, taskID)
}

// Text returns the cleaned text of a stored file. Chunks are included when
// includeChunks is set. The file is queued for indexing again as a side effect.
func (s *Service) Text(ctx context.Context, filename string, includeChunks bool) (domingest.Document, error) {
	doc, err := s.prepare(ctx, filename)
	if err != nil {
		return domingest.Document{}, err
	}

	if _, err := s.schedule(doc); err != nil {
		logger.FromContext(ctx, s.logger).Warn("Failed to reschedule indexing",
			zap.String("filename", filename), zap.Error(err))
	}

	if !includeChunks {
		doc.Chunks = nil
	}
	return doc, nil
}

func (s *Service) prepare(ctx context.Context, filename string) (domingest.Document, error) {
	path, err := s.files.Stat(filename)
	if err != nil {
		return domingest.Document{}, fmt.Errorf("locate %s: %w", filename, err)
	}

	raw, err := s.extractor.ExtractFile(ctx, path)
	if err != nil {
		return domingest.Document{}, fmt.Errorf("extract %s: %w", filename, err)
	}

	cleaned := text.Clean(raw)
	if cleaned == "" {
		return domingest.Document{}, fmt.Errorf("%s: %w", filename, domain.ErrEmptyDocument)
	}

	chunks, err := s.splitter.Split(cleaned)
	if err != nil {
		return domingest.Document{}, fmt.Errorf("split %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		return domingest.Document{}, fmt.Errorf("%s: %w", filename, domain.ErrEmptyDocument)
	}

	return domingest.Document{
		Filename: filename,
		Text:     cleaned,
		Stats:    chunk.ComputeStats(cleaned),
		Chunks:   chunks,
	}, nil
}

func (s *Service) schedule(doc domingest.Document) (string, error) {
	id, err := s.scheduler.Submit(doc.Filename, func(ctx context.Context) (int, error) {
		return s.index(ctx, doc)
	})
	if err != nil {
		return "", fmt.Errorf("schedule %s: %w", doc.Filename, err)
	}
	return id, nil
}

// index embeds all chunks in one batch and writes them under deterministic ids.
func (s *Service) index(ctx context.Context, doc domingest.Document) (int, error) {
	res, err := s.embed.BatchEmbed(ctx, doc.Chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.Filename, err)
	}
	if len(res.Embeddings) != len(doc.Chunks) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks: %w",
			doc.Filename, len(res.Embeddings), len(doc.Chunks), domain.ErrEmbeddingProviderError)
	}

	ts := s.now()
	records := make([]chunk.Record, len(doc.Chunks))
	for i, c := range doc.Chunks {
		records[i] = chunk.NewRecord(doc.Filename, i, c, res.Embeddings[i], doc.Stats, ts)
	}

	if err := s.chunks.Replace(ctx, doc.Filename, records); err != nil {
		return 0, fmt.Errorf("write chunks of %s: %w", doc.Filename, err)
	}
	return len(records), nil
}
