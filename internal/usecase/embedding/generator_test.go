package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

type mockGenerator struct {
	result domain.GenerationResult
	err    error
	calls  int
}

func (m *mockGenerator) Generate(
	_ context.Context, _ string, _ domain.GenerateOptions,
) (domain.GenerationResult, error) {
	m.calls++
	return m.result, m.err
}

func TestInstrumentedGenerator_RecordsUsage(t *testing.T) {
	budget := NewBudgetTracker("gen", 1000, 0, BudgetActionReject, zap.NewNop())
	inner := &mockGenerator{result: domain.GenerationResult{Text: "ok", PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50}}
	g := NewInstrumentedGenerator(inner, "gen", "chat", budget, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := g.Generate(ctx, "prompt", domain.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if usage.GenerationTokens() != 50 {
		t.Errorf("expected 50 generation tokens, got %d", usage.GenerationTokens())
	}
	if budget.DailyUsed() != 50 {
		t.Errorf("expected budget to record 50, got %d", budget.DailyUsed())
	}
}

func TestInstrumentedGenerator_BudgetRejection(t *testing.T) {
	budget := NewBudgetTracker("gen", 10, 0, BudgetActionReject, zap.NewNop())
	budget.Record(10)
	inner := &mockGenerator{}
	g := NewInstrumentedGenerator(inner, "gen", "chat", budget, nil)

	_, err := g.Generate(context.Background(), "prompt", domain.GenerateOptions{})
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("expected no provider call, got %d", inner.calls)
	}
}

func TestInstrumentedGenerator_Error(t *testing.T) {
	inner := &mockGenerator{err: domain.ErrGenerationFailed}
	g := NewInstrumentedGenerator(inner, "gen", "chat", nil, nil)

	if _, err := g.Generate(context.Background(), "p", domain.GenerateOptions{}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}
