// Package passage stores indexed passages as Redis/Valkey hashes under an
// FT vector index.
package passage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/db"
	"github.com/kailas-cloud/pdfqa/internal/domain"
	dompassage "github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// store is the consumer interface for the passage index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	Save(ctx context.Context) error
}

// Config describes the index layout.
type Config struct {
	Name        string // index name, also the key namespace
	Model       string // embedding model id, recorded in the meta hash
	Dimensions  int
	M           int // HNSW M, 0 keeps server default
	EFConstruct int // HNSW EF_CONSTRUCTION, 0 keeps server default
	Logger      *zap.Logger
}

// Repo is the Redis/Valkey vector index.
type Repo struct {
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates a passage repository. Call EnsureIndex before use.
func New(s store, cfg Config) *Repo {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, cfg: cfg, logger: logger}
}

// EnsureIndex records the embedding model and dimension on first use and
// creates the FT index if missing. A stored dimension that differs from the
// configured one is an error; a different model is only logged.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if err := r.checkMeta(ctx); err != nil {
		return err
	}

	name := indexName(r.cfg.Name)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("index exists %s: %w: %w", name, domain.ErrIndexPersistence, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(name).
		Prefix(keyPrefix(r.cfg.Name)).
		Tag(fieldSource).
		Numeric(fieldUnit).
		Numeric(fieldChunk).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.M, r.cfg.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w: %w", name, domain.ErrIndexPersistence, err)
	}
	r.logger.Info("Vector index created",
		zap.String("index", name),
		zap.Int("dimensions", r.cfg.Dimensions),
	)
	return nil
}

func (r *Repo) checkMeta(ctx context.Context) error {
	key := metaKey(r.cfg.Name)
	meta, err := r.store.HGetAll(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("read index meta %s: %w: %w", key, domain.ErrIndexPersistence, err)
	}

	if len(meta) == 0 {
		item := db.HashSetItem{Key: key, Fields: map[string]string{
			metaModel: r.cfg.Model,
			metaDims:  strconv.Itoa(r.cfg.Dimensions),
		}}
		if err := r.store.HSetMulti(ctx, []db.HashSetItem{item}); err != nil {
			return fmt.Errorf("write index meta %s: %w: %w", key, domain.ErrIndexPersistence, err)
		}
		return nil
	}

	if dims, _ := strconv.Atoi(meta[metaDims]); dims != 0 && dims != r.cfg.Dimensions {
		return fmt.Errorf("index %s holds %d-dim vectors, configured %d: %w",
			r.cfg.Name, dims, r.cfg.Dimensions, domain.ErrVectorDimMismatch)
	}
	if model := meta[metaModel]; model != r.cfg.Model {
		r.logger.Warn("Index was built with a different embedding model; retrieval quality may degrade",
			zap.String("index", r.cfg.Name),
			zap.String("stored_model", model),
			zap.String("configured_model", r.cfg.Model),
		)
	}
	return nil
}

// Upsert writes passages keyed by chunk ID. Existing keys are overwritten.
func (r *Repo) Upsert(ctx context.Context, passages []dompassage.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(passages))
	for i, p := range passages {
		if len(p.Vector()) != r.cfg.Dimensions {
			return fmt.Errorf("passage %s: got %d dims, want %d: %w",
				p.ID(), len(p.Vector()), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
		}
		items[i] = db.HashSetItem{Key: passageKey(r.cfg.Name, p.ID()), Fields: toHash(p)}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset %d passages: %w", len(items), err)
	}
	return nil
}

// Search returns up to k passages nearest to vector, best first.
// An index that does not exist yet has no passages.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]dompassage.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != r.cfg.Dimensions {
		return nil, fmt.Errorf("query: got %d dims, want %d: %w",
			len(vector), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(r.cfg.Name),
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldSource, fieldUnit, fieldChunk, fieldText},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search %s: %w", r.cfg.Name, err)
	}

	hits := make([]dompassage.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, dompassage.NewHit(fromHash(e.Fields), e.Score))
	}
	dompassage.Sort(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored passages.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(r.cfg.Name), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", r.cfg.Name, err)
	}
	return n, nil
}

// Persist asks the server to snapshot its dataset.
func (r *Repo) Persist(ctx context.Context) error {
	if err := r.store.Save(ctx); err != nil {
		return fmt.Errorf("persist %s: %w: %w", r.cfg.Name, domain.ErrIndexPersistence, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (r *Repo) Close() error { return nil }
