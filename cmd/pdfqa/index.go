package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/config"
	"github.com/kailas-cloud/pdfqa/internal/db"
	dbRedis "github.com/kailas-cloud/pdfqa/internal/db/redis"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
	"github.com/kailas-cloud/pdfqa/internal/repository/filestore"
	passagerepo "github.com/kailas-cloud/pdfqa/internal/repository/passage"
	qdrantrepo "github.com/kailas-cloud/pdfqa/internal/repository/qdrant"
)

// vectorIndex is what the use cases need from any index backend.
type vectorIndex interface {
	Upsert(ctx context.Context, passages []passage.Passage) error
	Persist(ctx context.Context) error
	Search(ctx context.Context, vector []float32, k int) ([]passage.Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ vectorIndex = (*filestore.Store)(nil)
	_ vectorIndex = (*passagerepo.Repo)(nil)
	_ vectorIndex = (*qdrantrepo.Repo)(nil)
)

// openIndex opens the configured backend. The returned store is non-nil only
// for redis and valkey, where it also backs the embedding cache and budgets.
func openIndex(ctx context.Context, cfg config.Config, logger *zap.Logger) (vectorIndex, db.Store, error) {
	switch cfg.Index.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Index.Addrs,
			Password: cfg.Index.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", cfg.Index.Driver, err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Index.Driver, err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Index.Driver), zap.Strings("addrs", cfg.Index.Addrs))

		repo := passagerepo.New(store, passagerepo.Config{
			Name:        cfg.Index.Name,
			Model:       cfg.Embedding.Model,
			Dimensions:  cfg.Embedding.Dimensions,
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
			Logger:      logger,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("ensure index: %w", err)
		}
		return repo, store, nil

	case config.DriverQdrant:
		repo, err := qdrantrepo.Dial(ctx, qdrantrepo.Config{
			Host:       cfg.Index.Qdrant.Host,
			Port:       cfg.Index.Qdrant.Port,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open qdrant: %w", err)
		}
		return repo, nil, nil

	default:
		fs, err := filestore.Open(cfg.Index.Path, filestore.Options{
			ModelID:     cfg.Embedding.Model,
			Dim:         cfg.Embedding.Dimensions,
			LockTimeout: time.Duration(cfg.Index.LockTimeoutSec) * time.Second,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open file index: %w", err)
		}
		return fs, nil, nil
	}
}
