// Package ollama adapts a local Ollama server to the embedding and
// generation contracts.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
)

const provider = "ollama"

// Config holds Ollama connection settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration // http client timeout, 0 means none
	Logger  *zap.Logger
}

func newClient(cfg *Config) (*api.Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = "http://localhost:11434"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", raw, err)
	}
	return api.NewClient(base, &http.Client{Timeout: cfg.Timeout}), nil
}

func loggerOf(cfg *Config) *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

// wrapError maps an Ollama client error onto the domain taxonomy.
func wrapError(op string, err, wrap error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("ollama %s %d: %s: %w: %w",
				op, statusErr.StatusCode, statusErr.ErrorMessage, domain.ErrRateLimited, wrap)
		}
		if domain.RejectedStatus(statusErr.StatusCode) {
			return fmt.Errorf("ollama %s %d: %s: %w: %w",
				op, statusErr.StatusCode, statusErr.ErrorMessage, domain.ErrProviderRejected, wrap)
		}
		return fmt.Errorf("ollama %s %d: %s: %w", op, statusErr.StatusCode, statusErr.ErrorMessage, wrap)
	}
	return fmt.Errorf("ollama %s: %v: %w", op, err, wrap)
}

// Embedder calls /api/embed.
type Embedder struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: cfg.Model, logger: loggerOf(cfg)}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. /api/embed accepts a list input.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	duration := time.Since(start)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, wrapError("embed", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("ollama returned %d vectors for %d inputs: %w",
			len(resp.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.model).Observe(duration.Seconds())
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.model, "prompt").Add(float64(resp.PromptEvalCount))
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.model, "total").Add(float64(resp.PromptEvalCount))

	return domain.BatchEmbeddingResult{
		Embeddings:   resp.Embeddings,
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// HealthCheck pings the server root.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}

// Generator calls /api/generate with streaming disabled.
type Generator struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewGenerator creates an Ollama generation provider.
func NewGenerator(cfg *Config) (*Generator, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: cfg.Model, logger: loggerOf(cfg)}, nil
}

// Generate implements domain.Generator.
func (g *Generator) Generate(
	ctx context.Context, prompt string, opts domain.GenerateOptions,
) (domain.GenerationResult, error) {
	stream := false
	options := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	req := &api.GenerateRequest{
		Model:   g.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}

	var (
		result domain.GenerationResult
		done   bool
	)
	start := time.Now()
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		result.Text += resp.Response
		if resp.Done {
			done = true
			result.PromptTokens = resp.PromptEvalCount
			result.CompletionTokens = resp.EvalCount
			result.TotalTokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "error").Inc()
		return domain.GenerationResult{}, wrapError("generate", err, domain.ErrGenerationFailed)
	}
	if !done {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("ollama generate ended early: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(provider, g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "prompt").Add(float64(result.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(provider, g.model, "completion").Add(float64(result.CompletionTokens))

	g.logger.Debug("Ollama generation finished",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("eval_count", result.CompletionTokens),
	)
	return result, nil
}
