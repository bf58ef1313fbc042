package pdfqa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/chunker"
	"github.com/kailas-cloud/pdfqa/internal/db"
	dbRedis "github.com/kailas-cloud/pdfqa/internal/db/redis"
	"github.com/kailas-cloud/pdfqa/internal/domain"
	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	"github.com/kailas-cloud/pdfqa/internal/domain/batch"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
	"github.com/kailas-cloud/pdfqa/internal/loader"
	budgetrepo "github.com/kailas-cloud/pdfqa/internal/repository/budget"
	"github.com/kailas-cloud/pdfqa/internal/repository/filestore"
	passagerepo "github.com/kailas-cloud/pdfqa/internal/repository/passage"
	answeruc "github.com/kailas-cloud/pdfqa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/pdfqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pdfqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfqa/internal/usecase/resilience"
	"github.com/kailas-cloud/pdfqa/internal/usecase/retrieve"
	usageuc "github.com/kailas-cloud/pdfqa/internal/usecase/usage"
)

const (
	defaultIndexDir         = "chroma_db"
	defaultIndexName        = "pdfqa"
	defaultReadinessTimeout = 10 * time.Second

	// sdkProvider labels provider metrics and budget keys for caller-supplied providers.
	sdkProvider = "sdk"
)

// Internal interfaces, swapped out in tests.
type ingestUseCase interface {
	Ingest(ctx context.Context, dir string) (ingestuc.Report, error)
}

type answerUseCase interface {
	Answer(ctx context.Context, question string) (domanswer.Answer, error)
}

// index is what the client needs from any backend.
type index interface {
	Upsert(ctx context.Context, passages []passage.Passage) error
	Persist(ctx context.Context) error
	Search(ctx context.Context, vector []float32, k int) ([]passage.Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Client is the pdfqa SDK entry point. It is safe for concurrent Ask calls;
// Ingest runs should not overlap.
type Client struct {
	index     index
	store     db.Store
	ingestSvc ingestUseCase
	answerSvc answerUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a Client and opens the index.
// The provided context is used for connecting and loading persisted state.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{driver: driverFile}
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	idx, store, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := wireClient(ctx, idx, store, cfg, obs)
	if err != nil {
		_ = closeAll(idx, store)
		return nil, err
	}
	return c, nil
}

func (cfg *clientConfig) validate() error {
	if cfg.embedder == nil {
		return errors.New("pdfqa: embedder required (use WithEmbedder)")
	}
	switch cfg.driver {
	case driverFile:
		if cfg.indexDir == "" {
			cfg.indexDir = defaultIndexDir
		}
	case driverRedis, driverValkey:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return fmt.Errorf("pdfqa: %s address required", cfg.driver)
		}
		if cfg.dimensions <= 0 {
			return fmt.Errorf("pdfqa: %s index needs the embedding dimensions (WithEmbedder)", cfg.driver)
		}
	default:
		return fmt.Errorf("pdfqa: unknown driver %q", cfg.driver)
	}
	if cfg.chunkSize == 0 {
		cfg.chunkSize = domain.DefaultChunkSize
		cfg.chunkOverlap = domain.DefaultChunkOverlap
	}
	if cfg.maxPromptChars == 0 {
		cfg.maxPromptChars = domain.DefaultMaxPromptChars
	}
	return nil
}

func openIndex(ctx context.Context, cfg *clientConfig) (index, db.Store, error) {
	if cfg.driver == driverFile {
		s, err := filestore.Open(cfg.indexDir, filestore.Options{ModelID: cfg.model, Dim: cfg.dimensions})
		if err != nil {
			return nil, nil, fmt.Errorf("pdfqa: %w", err)
		}
		return s, nil, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, nil, fmt.Errorf("pdfqa: create %s store: %w", cfg.driver, err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("pdfqa: database not ready: %w", err)
	}
	repo := passagerepo.New(store, passagerepo.Config{
		Name:       defaultIndexName,
		Model:      cfg.model,
		Dimensions: cfg.dimensions,
	})
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("pdfqa: ensure index: %w", err)
	}
	return repo, store, nil
}

func wireClient(ctx context.Context, idx index, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	split, err := chunker.New(cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("pdfqa: %w", err)
	}
	strategy, err := answeruc.ParseStrategy(cfg.strategy)
	if err != nil {
		return nil, fmt.Errorf("pdfqa: %w", err)
	}

	nop := zap.NewNop()
	policy := resilience.DefaultPolicy()
	if cfg.attempts > 0 {
		policy.MaxAttempts = cfg.attempts
	}
	if cfg.timeout > 0 {
		policy.Timeout = cfg.timeout
	}

	var budget embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if cfg.dailyTokens > 0 || cfg.monthlyTokens > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.rejectOverrun {
			action = embeddinguc.BudgetActionReject
		}
		tracker := embeddinguc.NewBudgetTracker(sdkProvider, cfg.dailyTokens, cfg.monthlyTokens, action, nop)
		if store != nil {
			tracker = tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
		budget, budgetReader = tracker, tracker
	}

	embedder := embeddinguc.NewInstrumentedEmbedder(
		resilience.NewEmbedder(adaptEmbedder(cfg.embedder), policy, nop),
		sdkProvider, cfg.model, budget, nop,
	)

	var gen domain.Generator = noopGenerator{}
	if cfg.generator != nil {
		gen = &generatorAdapter{inner: cfg.generator}
	}
	generator := embeddinguc.NewInstrumentedGenerator(
		resilience.NewGenerator(gen, policy, nop),
		sdkProvider, "", budget, nop,
	)

	docs := loader.New()
	for ext, e := range cfg.extractors {
		docs = docs.WithExtractor(ext, e)
	}

	retriever := retrieve.New(idx, embedder).WithK(cfg.topK)
	answerSvc := answeruc.New(retriever, generator, nop).
		WithStrategy(strategy).
		WithGenerateOptions(cfg.temperature, cfg.maxTokens).
		WithMaxPromptChars(cfg.maxPromptChars).
		WithNoDocumentsMessage(cfg.noDocumentsMessage)

	var checker healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(interface{ HealthCheck(context.Context) error }); ok {
		checker = hc
	}

	return &Client{
		index:     idx,
		store:     store,
		ingestSvc: ingestuc.New(docs, split, embedder, idx, nop).WithBatchSize(cfg.batchSize),
		answerSvc: answerSvc,
		healthSvc: healthuc.New(idx, checker),
		usageSvc:  usageuc.New(budgetReader),
		obs:       obs,
	}, nil
}

// Close releases the index lock and connections. Ingest persists as it goes,
// so there is nothing to flush.
func (c *Client) Close() error {
	return closeAll(c.index, c.store)
}

func closeAll(idx index, store db.Store) error {
	var err error
	if idx != nil {
		err = idx.Close()
	}
	if store != nil {
		store.Close()
	}
	if err != nil {
		return fmt.Errorf("pdfqa: close index: %w", err)
	}
	return nil
}

// Ingest loads every supported file under dir, chunks it, embeds the chunks
// and persists the index. Batches that fail are skipped and listed in the
// report; unreadable files are listed as skipped.
func (c *Client) Ingest(ctx context.Context, dir string) (_ IngestReport, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("ingest", start, usage, err) }()

	r, err := c.ingestSvc.Ingest(ctx, dir)
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest %s: %w", dir, err)
	}
	return toIngestReport(r), nil
}

// Ask answers question from the indexed passages. When nothing is indexed it
// returns the no-documents message with Fallback set and no error.
func (c *Client) Ask(ctx context.Context, question string) (_ Answer, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("ask", start, usage, err) }()

	a, err := c.answerSvc.Answer(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return toAnswer(a), nil
}

func toIngestReport(r ingestuc.Report) IngestReport {
	out := IngestReport{
		Files:     r.Files,
		Documents: r.Documents,
		Chunks:    r.Chunks,
		Indexed:   r.Indexed,
		Duration:  r.Duration,
	}
	for _, b := range r.Batches {
		if b.Status() == batch.StatusError {
			out.FailedBatches = append(out.FailedBatches, FailedBatch{Start: b.Start(), End: b.End(), Err: b.Err()})
		}
	}
	for _, f := range r.Failures {
		out.SkippedFiles = append(out.SkippedFiles, SkippedFile{Source: f.Source, Err: f.Err})
	}
	return out
}

func toAnswer(a domanswer.Answer) Answer {
	out := Answer{Text: a.Text(), Fallback: a.Fallback(), Sources: make([]Source, 0, len(a.Sources()))}
	for i, p := range a.Sources() {
		ch := p.Chunk()
		out.Sources = append(out.Sources, Source{
			Source:  ch.SourceID(),
			Page:    ch.UnitIndex() + 1,
			Chunk:   ch.ChunkIndex(),
			Score:   a.Score(i),
			Text:    ch.Text(),
			Excerpt: ch.Excerpt(domain.DefaultExcerptRunes),
		})
	}
	return out
}

// noopGenerator fails every call (used when no generator is configured).
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, string, domain.GenerateOptions) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf(
		"%w: generator not configured (use WithGenerator)", domain.ErrGenerationFailed,
	)
}
