package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.EmbeddingResult{}, domain.ErrRateLimited
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 3}, nil
}

type flakyGenerator struct {
	err   error
	calls int
}

func (f *flakyGenerator) Generate(
	_ context.Context, prompt string, _ domain.GenerateOptions,
) (domain.GenerationResult, error) {
	f.calls++
	if f.err != nil {
		return domain.GenerationResult{}, f.err
	}
	return domain.GenerationResult{Text: "answer to " + prompt}, nil
}

func TestEmbedder_RetriesBatchAsUnit(t *testing.T) {
	inner := &flakyEmbedder{failures: 1}
	emb := NewEmbedder(inner, fastPolicy(3), nil)

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	// first attempt fails on "a", second attempt embeds both
	if inner.calls != 3 {
		t.Errorf("expected 3 inner calls, got %d", inner.calls)
	}
}

func TestGenerator_NoRetryOnContextTooLarge(t *testing.T) {
	inner := &flakyGenerator{err: domain.NewContextTooLarge(10, 5)}
	gen := NewGenerator(inner, fastPolicy(3), nil)

	_, err := gen.Generate(context.Background(), "q", domain.GenerateOptions{})
	if !errors.Is(err, domain.ErrContextTooLarge) {
		t.Fatalf("expected ErrContextTooLarge, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestGenerator_PassesThrough(t *testing.T) {
	gen := NewGenerator(&flakyGenerator{}, fastPolicy(3), nil)
	res, err := gen.Generate(context.Background(), "q", domain.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "answer to q" {
		t.Errorf("unexpected text %q", res.Text)
	}
}
