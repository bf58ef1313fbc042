package answer

import (
	"context"

	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Retriever returns the passages closest to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]passage.Hit, error)
}
