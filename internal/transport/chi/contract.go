package chi

import (
	"context"

	"github.com/kailas-cloud/docchat/internal/domain/chat"
	domingest "github.com/kailas-cloud/docchat/internal/domain/ingest"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docchat/internal/usecase/ingest"
)

// ChatService answers chat requests.
type ChatService interface {
	Complete(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// IngestService stores, processes and reads back PDFs.
type IngestService interface {
	Upload(ctx context.Context, files []ingestuc.File) ([]domingest.FileResult, error)
	Text(ctx context.Context, filename string, includeChunks bool) (domingest.Document, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
