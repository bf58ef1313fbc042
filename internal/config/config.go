package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

// Index drivers.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverQdrant = "qdrant"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds the pdfqa configuration.
type Config struct {
	Logging    LoggingConfig             `yaml:"logging"`
	HTTP       HTTPConfig                `yaml:"http"`
	Auth       AuthConfig                `yaml:"auth"`
	Documents  DocumentsConfig           `yaml:"documents"`
	Chunking   ChunkingConfig            `yaml:"chunking"`
	Ingest     IngestConfig              `yaml:"ingest"`
	Index      IndexConfig               `yaml:"index"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Embedding  EmbeddingConfig           `yaml:"embedding"`
	Generation GenerationConfig          `yaml:"generation"`
	Retrieval  RetrievalConfig           `yaml:"retrieval"`
	Answer     AnswerConfig              `yaml:"answer"`
	Resilience ResilienceConfig          `yaml:"resilience"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API authentication settings.
// An empty key list disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// DocumentsConfig points at the source folder.
type DocumentsConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// ChunkingConfig holds splitter parameters, measured in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Driver string `yaml:"driver"` // file, redis, valkey, qdrant (default: file)
	Name   string `yaml:"name"`

	// file
	Path           string `yaml:"path"`
	LockTimeoutSec int    `yaml:"lock_timeout_sec"`

	// redis / valkey
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`

	// qdrant
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds model provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	CacheTTLHours       int    `yaml:"cache_ttl_hours"` // redis/valkey only, 0 disables
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	MaxPromptChars int     `yaml:"max_prompt_chars"`
	Strategy       string  `yaml:"strategy"` // stuff, refine, map_reduce
}

// RetrievalConfig holds retriever settings.
type RetrievalConfig struct {
	K int `yaml:"k"`
}

// AnswerConfig holds query pipeline settings.
type AnswerConfig struct {
	NoDocumentsMessage string `yaml:"no_documents_message"`
}

// ResilienceConfig is the timeout and retry policy for provider calls.
type ResilienceConfig struct {
	TimeoutSec       int `yaml:"timeout_sec"`
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of independent defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// ingestion over HTTP is synchronous
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Documents.Dir == "" {
		c.Documents.Dir = "data"
	}
	if len(c.Documents.Extensions) == 0 {
		c.Documents.Extensions = []string{".pdf", ".txt", ".md"}
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = domain.DefaultChunkSize
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = domain.DefaultChunkOverlap
		}
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = domain.DefaultBatchSize
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverFile
	}
	if c.Index.Name == "" {
		c.Index.Name = "pdfqa"
	}
	if c.Index.Path == "" {
		c.Index.Path = "chroma_db"
	}
	if c.Index.LockTimeoutSec <= 0 {
		c.Index.LockTimeoutSec = 5
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.Qdrant.Port <= 0 {
		c.Index.Qdrant.Port = 6334
	}
	if c.Index.Qdrant.Collection == "" {
		c.Index.Qdrant.Collection = c.Index.Name
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == ProviderOpenAI {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 && c.Embedding.Model == "text-embedding-3-small" {
		c.Embedding.Dimensions = 1536
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.Model == "" && c.Generation.Provider == ProviderOpenAI {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = domain.DefaultMaxTokens
	}
	if c.Generation.MaxPromptChars <= 0 {
		c.Generation.MaxPromptChars = domain.DefaultMaxPromptChars
	}
	if c.Generation.Strategy == "" {
		c.Generation.Strategy = "stuff"
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = domain.DefaultTopK
	}
	if c.Answer.NoDocumentsMessage == "" {
		c.Answer.NoDocumentsMessage = domain.DefaultNoDocumentsMessage
	}
	if c.Resilience.TimeoutSec <= 0 {
		c.Resilience.TimeoutSec = 30
	}
	if c.Resilience.MaxAttempts <= 0 {
		c.Resilience.MaxAttempts = 3
	}
	if c.Resilience.InitialBackoffMS <= 0 {
		c.Resilience.InitialBackoffMS = 200
	}
	if c.Resilience.MaxBackoffMS <= 0 {
		c.Resilience.MaxBackoffMS = 5000
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if p, ok := c.Providers[ProviderOllama]; ok && p.BaseURL == "" {
		p.BaseURL = "http://localhost:11434"
		c.Providers[ProviderOllama] = p
	}
}

// Validate checks the configuration for correctness.
//
//nolint:gocyclo // one branch per rule
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}

	switch c.Index.Driver {
	case DriverFile:
	case DriverRedis, DriverValkey:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for driver %q", c.Index.Driver)
		}
	case DriverQdrant:
		if c.Index.Qdrant.Host == "" {
			return fmt.Errorf("index.qdrant.host is required for driver %q", c.Index.Driver)
		}
	default:
		return fmt.Errorf("index.driver must be one of file, redis, valkey, qdrant, got %q", c.Index.Driver)
	}
	if c.Index.Driver != DriverFile && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions is required for driver %q", c.Index.Driver)
	}

	if err := c.validateProvider("embedding", c.Embedding.Provider); err != nil {
		return err
	}
	if err := c.validateProvider("generation", c.Generation.Provider); err != nil {
		return err
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be in [0, 2], got %v", c.Generation.Temperature)
	}
	switch c.Generation.Strategy {
	case "stuff", "refine", "map_reduce":
	default:
		return fmt.Errorf("generation.strategy must be stuff, refine or map_reduce, got %q", c.Generation.Strategy)
	}

	for name, p := range c.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	return nil
}

func (c *Config) validateProvider(section, name string) error {
	switch name {
	case ProviderOpenAI:
		p, ok := c.Providers[name]
		if !ok || p.APIKey == "" {
			return fmt.Errorf("%s.provider %q requires providers.%s.api_key", section, name, name)
		}
	case ProviderOllama:
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("%s.provider %q requires a providers.%s section", section, name, name)
		}
	default:
		return fmt.Errorf("%s.provider must be openai or ollama, got %q", section, name)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
