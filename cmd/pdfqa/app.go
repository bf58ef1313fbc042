package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/chunker"
	"github.com/kailas-cloud/pdfqa/internal/config"
	"github.com/kailas-cloud/pdfqa/internal/db"
	"github.com/kailas-cloud/pdfqa/internal/loader"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
	answeruc "github.com/kailas-cloud/pdfqa/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/pdfqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfqa/internal/usecase/retrieve"
	usageuc "github.com/kailas-cloud/pdfqa/internal/usecase/usage"
)

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	index  vectorIndex
	store  db.Store

	ingest *ingestuc.Service
	answer *answeruc.Service
	usage  *usageuc.Service
	health *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	strategy, err := answeruc.ParseStrategy(cfg.Generation.Strategy)
	if err != nil {
		return nil, err
	}
	split, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	index, store, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, index: index, store: store}

	budgets := newBudgets(ctx, cfg, store, logger)
	embedder, err := buildEmbedder(cfg, store, budgetChecker(budgets, cfg.Embedding.Provider), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	generator, err := buildGenerator(cfg, budgetChecker(budgets, cfg.Generation.Provider), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("Providers ready",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("strategy", string(strategy)),
	)

	docs := loader.New().
		WithExtensions(cfg.Documents.Extensions).
		WithLogger(logger)

	a.ingest = ingestuc.New(docs, split, withInstruction(embedder, cfg.Embedding.DocumentInstruction), index, logger).
		WithBatchSize(cfg.Ingest.BatchSize)

	retriever := retrieve.New(index, withInstruction(embedder, cfg.Embedding.QueryInstruction)).
		WithK(cfg.Retrieval.K)
	a.answer = answeruc.New(retriever, generator, logger).
		WithStrategy(strategy).
		WithGenerateOptions(cfg.Generation.Temperature, cfg.Generation.MaxTokens).
		WithMaxPromptChars(cfg.Generation.MaxPromptChars).
		WithNoDocumentsMessage(cfg.Answer.NoDocumentsMessage)

	var budgetReader usageuc.BudgetReader
	if b, ok := budgets[cfg.Embedding.Provider]; ok {
		budgetReader = b
	}
	a.usage = usageuc.New(budgetReader)
	a.health = healthuc.New(index, embeddingHealthChecker{embedder: embedder})

	return a, nil
}

// Close releases the index lock and connections.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.Error("Failed to close index", zap.Error(err))
	}
	if a.store != nil {
		a.store.Close()
	}
}
