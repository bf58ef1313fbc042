package answer

import (
	"testing"

	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

func TestNewFallback(t *testing.T) {
	a := NewFallback("nothing found")
	if !a.Fallback() {
		t.Error("expected fallback answer")
	}
	if a.Text() != "nothing found" {
		t.Errorf("Text() = %q", a.Text())
	}
	if a.Sources() == nil || len(a.Sources()) != 0 {
		t.Errorf("expected empty non-nil sources, got %v", a.Sources())
	}
}

func TestNew(t *testing.T) {
	p := passage.New(chunk.New("a.pdf", 0, 0, "A has 3 items."), nil)
	a := New("A has 3 items.", []passage.Passage{p})
	if a.Fallback() {
		t.Error("expected generated answer")
	}
	if len(a.Sources()) != 1 {
		t.Errorf("expected 1 source, got %d", len(a.Sources()))
	}
}

func TestScore(t *testing.T) {
	p := passage.New(chunk.New("a.pdf", 0, 0, "x"), nil)
	a := New("x", []passage.Passage{p}).WithScores([]float64{0.87})
	if a.Score(0) != 0.87 {
		t.Errorf("expected 0.87, got %v", a.Score(0))
	}
	if a.Score(1) != 0 || a.Score(-1) != 0 {
		t.Error("expected 0 for out-of-range source")
	}
}
