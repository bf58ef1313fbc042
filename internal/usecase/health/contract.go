package health

import "context"

// IndexCounter reports how many passages the vector index holds.
// A failing Count means the index is unreachable.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
