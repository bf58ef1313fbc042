// Package ingest runs the load, chunk, embed and upsert pipeline over a folder.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/batch"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
)

// Service ingests document folders into a vector index.
type Service struct {
	loader    DocumentLoader
	splitter  Splitter
	embed     domain.Embedder
	index     Index
	batchSize int
	logger    *zap.Logger
}

// New creates an ingestion service. embed should be the document-side embedder.
func New(l DocumentLoader, s Splitter, embed domain.Embedder, index Index, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loader:    l,
		splitter:  s,
		embed:     embed,
		index:     index,
		batchSize: domain.DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize sets the number of chunks embedded and upserted together.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Ingest loads dir, chunks it and indexes the chunks batch by batch.
//
// A batch that fails is logged with its chunk range and skipped; the run
// goes on. Only an unreadable dir, a cancelled context or a failed Persist
// return an error. A run where every batch failed still returns nil and is
// flagged by Report.Degraded.
func (s *Service) Ingest(ctx context.Context, dir string) (Report, error) {
	start := time.Now()
	rep, err := s.ingest(ctx, dir)
	rep.Duration = time.Since(start)

	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ingestion failed", zap.String("dir", dir), zap.Error(err))
		return rep, err
	}

	metrics.IngestRunsTotal.WithLabelValues(rep.outcome()).Inc()
	fields := []zap.Field{
		zap.String("dir", dir),
		zap.Int("files", rep.Files),
		zap.Int("skipped_files", len(rep.Failures)),
		zap.Int("chunks", rep.Chunks),
		zap.Int("indexed", rep.Indexed),
		zap.Int("failed_batches", len(rep.FailedBatches())),
		zap.Duration("duration", rep.Duration),
	}
	if rep.Degraded() {
		s.logger.Error("Ingestion indexed nothing: every batch failed, check the embedding provider", fields...)
		return rep, nil
	}
	s.logger.Info("Ingestion finished", fields...)
	return rep, nil
}

func (s *Service) ingest(ctx context.Context, dir string) (Report, error) {
	var rep Report

	loaded, err := s.loader.Load(ctx, dir)
	if err != nil {
		return rep, fmt.Errorf("load documents: %w", err)
	}
	rep.Files = loaded.Files
	rep.Documents = len(loaded.Documents)
	rep.Failures = loaded.Failures
	metrics.IngestDocumentsTotal.WithLabelValues("loaded").Add(float64(loaded.Files - len(loaded.Failures)))
	metrics.IngestDocumentsTotal.WithLabelValues("failed").Add(float64(len(loaded.Failures)))

	chunks := s.splitter.SplitAll(loaded.Documents)
	rep.Chunks = len(chunks)
	if len(chunks) == 0 {
		s.logger.Info("No chunks to index", zap.String("dir", dir), zap.Int("files", loaded.Files))
		return rep, nil
	}

	for lo := 0; lo < len(chunks); lo += s.batchSize {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("ingest %s: %w", dir, err)
		}
		hi := min(lo+s.batchSize, len(chunks))

		if err := s.indexBatch(ctx, chunks[lo:hi]); err != nil {
			if ctx.Err() != nil {
				return rep, fmt.Errorf("ingest %s: %w", dir, ctx.Err())
			}
			metrics.IngestBatchesTotal.WithLabelValues(string(batch.StatusError)).Inc()
			s.logger.Error("Skipping failed batch",
				zap.Int("batch_start", lo),
				zap.Int("batch_end", hi),
				zap.Error(err),
			)
			rep.Batches = append(rep.Batches, batch.NewError(lo, hi, err))
			continue
		}

		metrics.IngestBatchesTotal.WithLabelValues(string(batch.StatusOK)).Inc()
		metrics.IngestPassagesTotal.Add(float64(hi - lo))
		rep.Batches = append(rep.Batches, batch.NewOK(lo, hi))
		rep.Indexed += hi - lo
		s.logger.Debug("Batch indexed", zap.Int("batch_start", lo), zap.Int("batch_end", hi))
	}

	if rep.Indexed == 0 {
		return rep, nil
	}
	if err := s.index.Persist(ctx); err != nil {
		if !errors.Is(err, domain.ErrIndexPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
		}
		return rep, fmt.Errorf("persist index: %w", err)
	}
	return rep, nil
}

func (s *Service) indexBatch(ctx context.Context, chunks []chunk.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}

	res, err := domain.EmbedBatch(ctx, s.embed, texts)
	if err != nil {
		return fmt.Errorf("%w: embed: %w", domain.ErrEmbeddingBatch, err)
	}
	if len(res.Embeddings) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks",
			domain.ErrEmbeddingBatch, len(res.Embeddings), len(chunks))
	}

	passages := make([]passage.Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = passage.New(c, res.Embeddings[i])
	}
	if err := s.index.Upsert(ctx, passages); err != nil {
		return fmt.Errorf("%w: upsert: %w", domain.ErrEmbeddingBatch, err)
	}
	return nil
}
