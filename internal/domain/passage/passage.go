package passage

import (
	"sort"

	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
)

// Passage is an indexed chunk: the chunk plus the vector produced for its text.
type Passage struct {
	chunk  chunk.Chunk
	vector []float32
}

// New creates a Passage.
func New(c chunk.Chunk, vector []float32) Passage {
	return Passage{chunk: c, vector: vector}
}

// Chunk returns the indexed chunk.
func (p Passage) Chunk() chunk.Chunk { return p.chunk }

// ID returns the chunk's content-derived ID.
func (p Passage) ID() string { return p.chunk.ID() }

// Vector returns the embedding. Search backends may leave it empty.
func (p Passage) Vector() []float32 { return p.vector }

// Hit is one similarity search result.
type Hit struct {
	passage Passage
	score   float64
}

// NewHit creates a Hit.
func NewHit(p Passage, score float64) Hit { return Hit{passage: p, score: score} }

// Passage returns the matched passage.
func (h Hit) Passage() Passage { return h.passage }

// Score returns the cosine similarity in [-1,1]; higher is closer.
// Every index backend reports on this scale.
func (h Hit) Score() float64 { return h.score }

// Sort orders hits by descending score. Ties break on passage ID so the
// order is stable across runs.
func Sort(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].passage.ID() < hits[j].passage.ID()
	})
}

// Passages strips scores, keeping order.
func Passages(hits []Hit) []Passage {
	out := make([]Passage, len(hits))
	for i, h := range hits {
		out[i] = h.passage
	}
	return out
}
