package resilience

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

// Embedder applies a Policy to every call of the wrapped embedder.
type Embedder struct {
	inner  domain.Embedder
	policy Policy
	logger *zap.Logger
}

// NewEmbedder wraps inner with timeout and retry.
func NewEmbedder(inner domain.Embedder, policy Policy, logger *zap.Logger) *Embedder {
	return &Embedder{inner: inner, policy: policy, logger: logger}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var res domain.EmbeddingResult
	err := Do(ctx, e.policy, "embed", e.logger, func(ctx context.Context) error {
		var err error
		res, err = e.inner.Embed(ctx, text)
		return err //nolint:wrapcheck // transparent decorator
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. The whole batch is retried as a unit.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var res domain.BatchEmbeddingResult
	err := Do(ctx, e.policy, "batch_embed", e.logger, func(ctx context.Context) error {
		var err error
		res, err = domain.EmbedBatch(ctx, e.inner, texts)
		return err //nolint:wrapcheck // transparent decorator
	})
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return res, nil
}

// HealthCheck delegates without retry.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// Generator applies a Policy to every call of the wrapped generator.
type Generator struct {
	inner  domain.Generator
	policy Policy
	logger *zap.Logger
}

// NewGenerator wraps inner with timeout and retry.
func NewGenerator(inner domain.Generator, policy Policy, logger *zap.Logger) *Generator {
	return &Generator{inner: inner, policy: policy, logger: logger}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(
	ctx context.Context, prompt string, opts domain.GenerateOptions,
) (domain.GenerationResult, error) {
	var res domain.GenerationResult
	err := Do(ctx, g.policy, "generate", g.logger, func(ctx context.Context) error {
		var err error
		res, err = g.inner.Generate(ctx, prompt, opts)
		return err //nolint:wrapcheck // transparent decorator
	})
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return res, nil
}
