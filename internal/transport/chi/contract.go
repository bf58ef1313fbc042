package chi

import (
	"context"

	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	"github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
)

// Ingester runs the ingestion pipeline over a folder.
type Ingester interface {
	Ingest(ctx context.Context, dir string) (ingest.Report, error)
}

// Asker answers a question from the indexed passages.
type Asker interface {
	Answer(ctx context.Context, question string) (domanswer.Answer, error)
}
