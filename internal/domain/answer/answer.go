package answer

import "github.com/kailas-cloud/pdfqa/internal/domain/passage"

// Answer is a synthesized response with the passages supplied to the model.
// Sources are not citation-verified.
type Answer struct {
	text     string
	sources  []passage.Passage
	scores   []float64
	fallback bool
}

// New creates a generated Answer.
func New(text string, sources []passage.Passage) Answer {
	return Answer{text: text, sources: sources}
}

// WithScores attaches the retrieval score of each source, same order.
func (a Answer) WithScores(scores []float64) Answer {
	a.scores = scores
	return a
}

// NewFallback creates the fixed answer returned when retrieval finds nothing.
func NewFallback(message string) Answer {
	return Answer{text: message, sources: []passage.Passage{}, fallback: true}
}

// Text returns the answer text.
func (a Answer) Text() string { return a.text }

// Sources returns the passages given to the model, in retrieval order.
func (a Answer) Sources() []passage.Passage { return a.sources }

// Fallback reports whether this is the no-documents answer.
func (a Answer) Fallback() bool { return a.fallback }

// Score returns the retrieval score of source i, 0 if none was attached.
func (a Answer) Score(i int) float64 {
	if i < 0 || i >= len(a.scores) {
		return 0
	}
	return a.scores[i]
}
