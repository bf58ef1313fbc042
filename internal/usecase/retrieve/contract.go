package retrieve

import (
	"context"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Searcher finds the passages nearest to a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]passage.Hit, error)
}

// Embedder vectorizes the question. It must be the embedder used at ingestion.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
