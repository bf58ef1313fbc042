// Package retrieve embeds a question and returns the closest passages.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Service is the retriever.
type Service struct {
	index Searcher
	embed Embedder
	k     int
}

// New creates a retriever returning domain.DefaultTopK passages.
func New(index Searcher, embed Embedder) *Service {
	return &Service{index: index, embed: embed, k: domain.DefaultTopK}
}

// WithK sets the number of passages returned.
func (s *Service) WithK(k int) *Service {
	if k > 0 {
		s.k = k
	}
	return s
}

// K returns the configured result count.
func (s *Service) K() int { return s.k }

// Retrieve returns at most K passages ordered by descending similarity.
func (s *Service) Retrieve(ctx context.Context, question string) ([]passage.Hit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidQuestion)
	}

	emb, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	hits, err := s.index.Search(ctx, emb.Embedding, s.k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}
