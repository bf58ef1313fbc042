package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// --- Mocks ---

type mockSearcher struct {
	hits   []passage.Hit
	err    error
	gotK   int
	gotVec []float32
}

func (m *mockSearcher) Search(_ context.Context, vector []float32, k int) ([]passage.Hit, error) {
	m.gotK = k
	m.gotVec = vector
	return m.hits, m.err
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

// --- Tests ---

func TestRetrieve_DefaultK(t *testing.T) {
	hit := passage.NewHit(passage.New(chunk.New("a.pdf", 0, 0, "A has 3 items."), nil), 0.9)
	idx := &mockSearcher{hits: []passage.Hit{hit}}
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}

	hits, err := New(idx, emb).Retrieve(context.Background(), "How many items does A have?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.gotK != 5 {
		t.Errorf("expected k=5, got %d", idx.gotK)
	}
	if len(idx.gotVec) != 2 {
		t.Errorf("expected the question vector to reach the index, got %v", idx.gotVec)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}
}

func TestRetrieve_WithK(t *testing.T) {
	idx := &mockSearcher{}
	svc := New(idx, &mockEmbedder{}).WithK(8).WithK(0)
	if _, err := svc.Retrieve(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if idx.gotK != 8 {
		t.Errorf("expected k=8 (0 ignored), got %d", idx.gotK)
	}
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	emb := &mockEmbedder{}
	_, err := New(&mockSearcher{}, emb).Retrieve(context.Background(), "  \n")
	if !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("empty question must not be embedded")
	}
}

func TestRetrieve_Errors(t *testing.T) {
	_, err := New(&mockSearcher{}, &mockEmbedder{err: domain.ErrRateLimited}).Retrieve(context.Background(), "q")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected embed error, got %v", err)
	}

	idxErr := errors.New("index offline")
	_, err = New(&mockSearcher{err: idxErr}, &mockEmbedder{}).Retrieve(context.Background(), "q")
	if !errors.Is(err, idxErr) {
		t.Errorf("expected search error, got %v", err)
	}
}
