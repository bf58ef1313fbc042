// Package answer is the query pipeline: retrieve passages, assemble prompts,
// generate a grounded answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
)

// Service answers questions over the indexed passages.
type Service struct {
	retriever      Retriever
	gen            domain.Generator
	strategy       Strategy
	opts           domain.GenerateOptions
	maxPromptChars int
	noDocuments    string
	logger         *zap.Logger
}

// New creates a query pipeline with the stuff strategy, temperature 0 and
// domain defaults for the output and prompt limits.
func New(r Retriever, gen domain.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever:      r,
		gen:            gen,
		strategy:       StrategyStuff,
		opts:           domain.GenerateOptions{Temperature: 0, MaxTokens: domain.DefaultMaxTokens},
		maxPromptChars: domain.DefaultMaxPromptChars,
		noDocuments:    domain.DefaultNoDocumentsMessage,
		logger:         logger,
	}
}

// WithStrategy sets the prompt assembly strategy.
func (s *Service) WithStrategy(st Strategy) *Service {
	if st != "" {
		s.strategy = st
	}
	return s
}

// WithGenerateOptions sets sampling temperature and output length.
func (s *Service) WithGenerateOptions(temperature float32, maxTokens int) *Service {
	s.opts.Temperature = temperature
	if maxTokens > 0 {
		s.opts.MaxTokens = maxTokens
	}
	return s
}

// WithMaxPromptChars sets the prompt size limit. 0 disables the check.
func (s *Service) WithMaxPromptChars(n int) *Service {
	s.maxPromptChars = n
	return s
}

// WithNoDocumentsMessage sets the fallback answer text.
func (s *Service) WithNoDocumentsMessage(msg string) *Service {
	if msg != "" {
		s.noDocuments = msg
	}
	return s
}

// Answer retrieves passages for question and generates an answer from them.
// With no passages it returns the fallback answer without calling the generator.
// The answer's sources are the passages given to the model, in retrieval order.
func (s *Service) Answer(ctx context.Context, question string) (domanswer.Answer, error) {
	start := time.Now()
	hits, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.record("error")
		return domanswer.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	if len(hits) == 0 {
		s.record("fallback")
		s.logger.Info("No passages retrieved, returning fallback answer",
			zap.Duration("duration", time.Since(start)))
		return domanswer.NewFallback(s.noDocuments), nil
	}

	passages := passage.Passages(hits)
	text, err := assemble(ctx, s.strategy, question, passages, newSizeCheck(s.maxPromptChars), s.generate)
	if err != nil {
		s.record("error")
		return domanswer.Answer{}, err
	}

	s.record("answered")
	s.logger.Info("Answer generated",
		zap.String("strategy", string(s.strategy)),
		zap.Int("hits", len(hits)),
		zap.Float64("top_score", hits[0].Score()),
		zap.Duration("duration", time.Since(start)),
	)
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score()
	}
	return domanswer.New(text, passages).WithScores(scores), nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	res, err := s.gen.Generate(ctx, prompt, s.opts)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) || errors.Is(err, domain.ErrContextTooLarge) {
			return "", fmt.Errorf("generate: %w", err)
		}
		return "", fmt.Errorf("generate: %w: %w", domain.ErrGenerationFailed, err)
	}
	return res.Text, nil
}

func (s *Service) record(outcome string) {
	metrics.QueriesTotal.WithLabelValues(outcome, string(s.strategy)).Inc()
}
