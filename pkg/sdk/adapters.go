package pdfqa

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

// embedderAdapter wraps a public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, wrapProvider(err, domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// batchEmbedderAdapter also forwards BatchEmbed.
type batchEmbedderAdapter struct {
	embedderAdapter
	batch BatchEmbedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	r, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, wrapProvider(err, domain.ErrEmbeddingProviderError)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func adaptEmbedder(e Embedder) domain.Embedder {
	base := embedderAdapter{inner: e}
	if b, ok := e.(BatchEmbedder); ok {
		return &batchEmbedderAdapter{embedderAdapter: base, batch: b}
	}
	return &base
}

// generatorAdapter wraps a public Generator to satisfy domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(
	ctx context.Context, prompt string, opts domain.GenerateOptions,
) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, prompt, GenerateOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
	if err != nil {
		return domain.GenerationResult{}, wrapProvider(err, domain.ErrGenerationFailed)
	}
	return domain.GenerationResult{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}, nil
}

// wrapProvider tags a caller error with the provider sentinel unless the
// caller already used one of ours.
func wrapProvider(err, sentinel error) error {
	if errors.Is(err, sentinel) || errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrContextTooLarge) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
