package pdfqa

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	driverFile   = "file"
	driverRedis  = "redis"
	driverValkey = "valkey"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "file", "valkey" or "redis"
	indexDir string
	addrs    []string
	password string

	embedder   Embedder
	model      string
	dimensions int
	generator  Generator

	chunkSize    int
	chunkOverlap int
	batchSize    int
	topK         int

	strategy           string
	temperature        float32
	maxTokens          int
	maxPromptChars     int
	noDocumentsMessage string

	extractors map[string]Extractor

	dailyTokens   int64
	monthlyTokens int64
	rejectOverrun bool

	attempts int
	timeout  time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFileIndex stores the index in a local directory (the default, "chroma_db").
func WithFileIndex(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverFile
		c.indexDir = dir
	})
}

// WithValkey stores the index in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores the index in a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the embedding provider. Required.
// model is recorded in the index; dimensions may be 0 for the file index,
// which then adopts the size of the first vector.
func WithEmbedder(e Embedder, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.model = model
		c.dimensions = dimensions
	})
}

// WithGenerator sets the answer generation provider.
// Without one, Ask fails with ErrGenerationFailed.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithChunking sets chunk size and overlap in characters.
// Defaults: 1000 and 200.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithBatchSize sets the number of chunks embedded per batch. Default: 100.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = n
	})
}

// WithTopK sets how many passages are retrieved per question. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithStrategy selects how passages are combined: "stuff" (default),
// "refine" or "map_reduce".
func WithStrategy(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.strategy = name
	})
}

// WithGenerateOptions sets sampling temperature and the completion token cap.
func WithGenerateOptions(temperature float32, maxTokens int) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	})
}

// WithMaxPromptChars caps the assembled prompt; longer prompts fail with
// ErrContextTooLarge before the generator is called.
func WithMaxPromptChars(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxPromptChars = n
	})
}

// WithNoDocumentsMessage sets the answer returned when nothing is retrieved.
func WithNoDocumentsMessage(msg string) Option {
	return optionFunc(func(c *clientConfig) {
		c.noDocumentsMessage = msg
	})
}

// WithExtractor registers an extractor for a file extension such as ".docx".
// It replaces the built-in one for ".pdf", ".txt" or ".md".
func WithExtractor(ext string, e Extractor) Option {
	return optionFunc(func(c *clientConfig) {
		if c.extractors == nil {
			c.extractors = map[string]Extractor{}
		}
		c.extractors[ext] = e
	})
}

// WithTokenBudget limits provider tokens per UTC day and month (0 = unlimited).
// With reject set, calls over budget fail with ErrEmbeddingQuotaExceeded;
// otherwise the overrun is only logged.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOverrun = reject
	})
}

// WithRetry sets attempts and the per-attempt timeout for provider calls.
// Defaults: 3 attempts, 30s.
func WithRetry(attempts int, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.attempts = attempts
		c.timeout = timeout
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
