package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/config"
	"github.com/kailas-cloud/pdfqa/internal/db"
	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
	budgetrepo "github.com/kailas-cloud/pdfqa/internal/repository/budget"
	"github.com/kailas-cloud/pdfqa/internal/repository/embcache"
	"github.com/kailas-cloud/pdfqa/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/pdfqa/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/pdfqa/internal/usecase/embedding"
	"github.com/kailas-cloud/pdfqa/internal/usecase/resilience"
)

// newBudgets creates one tracker per provider that has a limit configured.
// Embedding and generation on the same provider share it.
func newBudgets(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) map[string]*embeddinguc.BudgetTracker {
	budgets := make(map[string]*embeddinguc.BudgetTracker)
	for _, name := range []string{cfg.Embedding.Provider, cfg.Generation.Provider} {
		if _, ok := budgets[name]; ok {
			continue
		}
		b := cfg.Providers[name].Budget
		if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
			continue
		}
		action := embeddinguc.BudgetActionWarn
		if b.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		tracker := embeddinguc.NewBudgetTracker(name, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger)
		if store != nil {
			tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
		budgets[name] = tracker
	}
	return budgets
}

// budgetChecker returns a nil interface, not a typed nil pointer, when the
// provider has no budget.
func budgetChecker(budgets map[string]*embeddinguc.BudgetTracker, provider string) embeddinguc.BudgetChecker {
	if b, ok := budgets[provider]; ok {
		return b
	}
	return nil
}

func resiliencePolicy(cfg config.ResilienceConfig) resilience.Policy {
	return resilience.Policy{
		Timeout:        time.Duration(cfg.TimeoutSec) * time.Second,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: time.Duration(cfg.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
	}
}

// buildEmbedder assembles provider -> cache -> resilience -> instrumented.
// Instruction prefixes are applied by the caller on top.
func buildEmbedder(
	cfg config.Config, store db.Store, budget embeddinguc.BudgetChecker, logger *zap.Logger,
) (domain.Embedder, error) {
	name := cfg.Embedding.Provider
	prov := cfg.Providers[name]

	var embedder domain.Embedder
	switch name {
	case config.ProviderOllama:
		e, err := ollama.NewEmbedder(&ollama.Config{BaseURL: prov.BaseURL, Model: cfg.Embedding.Model, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("ollama embedder: %w", err)
		}
		embedder = e
	default:
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     prov.APIKey,
			BaseURL:    prov.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   name,
			Logger:     logger,
		})
	}

	if store != nil && cfg.Embedding.CacheTTLHours > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour
		embedder = embcache.New(embedder, store, cfg.Embedding.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = resilience.NewEmbedder(embedder, resiliencePolicy(cfg.Resilience), logger)
	return embeddinguc.NewInstrumentedEmbedder(embedder, name, cfg.Embedding.Model, budget, logger), nil
}

// withInstruction prefixes every text with instruction, if set.
func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// buildGenerator assembles provider -> resilience -> instrumented.
func buildGenerator(
	cfg config.Config, budget embeddinguc.BudgetChecker, logger *zap.Logger,
) (domain.Generator, error) {
	name := cfg.Generation.Provider
	prov := cfg.Providers[name]

	var gen domain.Generator
	switch name {
	case config.ProviderOllama:
		g, err := ollama.NewGenerator(&ollama.Config{BaseURL: prov.BaseURL, Model: cfg.Generation.Model, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("ollama generator: %w", err)
		}
		gen = g
	default:
		gen = openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   prov.APIKey,
			BaseURL:  prov.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: name,
			Logger:   logger,
		})
	}

	gen = resilience.NewGenerator(gen, resiliencePolicy(cfg.Resilience), logger)
	return embeddinguc.NewInstrumentedGenerator(gen, name, cfg.Generation.Model, budget, logger), nil
}

// embeddingHealthChecker adapts an Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
