package passage

import (
	"testing"

	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
)

func TestSort_DescendingWithTieBreak(t *testing.T) {
	a := New(chunk.New("a.pdf", 0, 0, "a"), nil)
	b := New(chunk.New("b.pdf", 0, 0, "b"), nil)
	c := New(chunk.New("c.pdf", 0, 0, "c"), nil)

	hits := []Hit{NewHit(a, 0.2), NewHit(b, 0.9), NewHit(c, 0.2)}
	Sort(hits)

	if hits[0].Score() != 0.9 {
		t.Fatalf("expected best hit first, got %v", hits[0].Score())
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score() > hits[i-1].Score() {
			t.Errorf("hit %d score %v exceeds previous %v", i, hits[i].Score(), hits[i-1].Score())
		}
	}
	if hits[1].Passage().ID() > hits[2].Passage().ID() {
		t.Error("expected equal scores ordered by ID")
	}
}

func TestPassages_KeepsOrder(t *testing.T) {
	a := New(chunk.New("a.pdf", 0, 0, "a"), nil)
	b := New(chunk.New("b.pdf", 0, 0, "b"), nil)
	ps := Passages([]Hit{NewHit(b, 1), NewHit(a, 0.5)})
	if len(ps) != 2 || ps[0].Chunk().SourceID() != "b.pdf" {
		t.Errorf("unexpected passages: %+v", ps)
	}
}
