// Package chunker splits page text into overlapping, size-bounded chunks.
//
// Text is first cut recursively on the coarsest separator that occurs
// (paragraph break, line break, space, then single characters) until every
// piece fits in size-overlap characters. Pieces are then merged greedily;
// when the next piece does not fit, the current chunk is emitted and the
// next one starts with its last overlap characters. Chunks that would add
// only whitespace are dropped. Lengths are in runes.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/document"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker is a recursive character splitter. It is stateless and safe for concurrent use.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// New creates a Chunker. Requires size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap, separators: defaultSeparators}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// SplitAll chunks every document in order. Chunk indexes restart per document.
func (c *Chunker) SplitAll(docs []document.SourceDocument) []chunk.Chunk {
	var out []chunk.Chunk
	for _, d := range docs {
		out = append(out, c.Split(d)...)
	}
	return out
}

// Split chunks one document. Blank text yields no chunks.
func (c *Chunker) Split(doc document.SourceDocument) []chunk.Chunk {
	if blank(doc.Text()) {
		return nil
	}

	texts := c.merge(c.split(doc.Text(), c.separators))
	out := make([]chunk.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunk.New(doc.SourceID(), doc.UnitIndex(), i, t)
	}
	return out
}

// split cuts text into pieces of at most size-overlap runes.
// Concatenating the pieces reproduces text exactly.
func (c *Chunker) split(text string, separators []string) []string {
	step := c.size - c.overlap
	if utf8.RuneCountInString(text) <= step {
		return []string{text}
	}

	sep, finer := pickSeparator(text, separators)
	if sep == "" {
		return splitRunes(text, step)
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= step {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, c.split(part, finer)...)
	}
	return pieces
}

// merge packs pieces into chunks of at most size runes, each chunk after
// the first starting with the last overlap runes of its predecessor.
// A chunk whose text past the carried overlap is whitespace only is dropped;
// the next chunk reuses the same carry.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	carry := ""
	curLen := 0

	for _, p := range pieces {
		pLen := utf8.RuneCountInString(p)
		if curLen+pLen <= c.size {
			cur.WriteString(p)
			curLen += pLen
			continue
		}

		if text := cur.String(); !blank(text[len(carry):]) {
			chunks = append(chunks, text)
			carry = lastRunes(text, c.overlap)
		}
		cur.Reset()
		cur.WriteString(carry)
		cur.WriteString(p)
		curLen = utf8.RuneCountInString(carry) + pLen
	}

	if text := cur.String(); !blank(text[len(carry):]) {
		chunks = append(chunks, text)
	}
	return chunks
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// pickSeparator returns the first separator present in text and the finer ones after it.
// The empty separator always matches.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			return s, separators[i+1:]
		}
	}
	return "", nil
}

func splitRunes(text string, n int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/n+1)
	for start := 0; start < len(runes); start += n {
		end := min(start+n, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
