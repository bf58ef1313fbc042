package domain

import (
	"context"
	"sync"
)

type tokenUsageKey struct{}

// TokenUsage collects provider token usage for one request.
// The handler puts a pointer into the context, the decorators add to it,
// and the handler reads it back for response headers.
type TokenUsage struct {
	mu               sync.Mutex
	embeddingTokens  int
	generationTokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *TokenUsage) {
	u := &TokenUsage{}
	return context.WithValue(ctx, tokenUsageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if the context has none.
func UsageFromContext(ctx context.Context) *TokenUsage {
	u, _ := ctx.Value(tokenUsageKey{}).(*TokenUsage)
	return u
}

// AddEmbedding records embedding tokens. Safe on a nil receiver.
func (u *TokenUsage) AddEmbedding(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.mu.Unlock()
}

// AddGeneration records generation tokens. Safe on a nil receiver.
func (u *TokenUsage) AddGeneration(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.generationTokens += n
	u.mu.Unlock()
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *TokenUsage) EmbeddingTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens
}

// GenerationTokens returns the generation tokens recorded so far.
func (u *TokenUsage) GenerationTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.generationTokens
}
