package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Chunk is a bounded slice of a SourceDocument's text, the unit of embedding and retrieval.
type Chunk struct {
	sourceID   string
	unitIndex  int
	chunkIndex int
	text       string
}

// New creates a Chunk.
func New(sourceID string, unitIndex, chunkIndex int, text string) Chunk {
	return Chunk{
		sourceID:   sourceID,
		unitIndex:  unitIndex,
		chunkIndex: chunkIndex,
		text:       text,
	}
}

// SourceID returns the originating file name.
func (c Chunk) SourceID() string { return c.sourceID }

// UnitIndex returns the originating page or unit.
func (c Chunk) UnitIndex() int { return c.unitIndex }

// ChunkIndex returns the position of the chunk within its unit.
func (c Chunk) ChunkIndex() int { return c.chunkIndex }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// ID returns a content-derived identifier: hex SHA-256 over source, unit,
// chunk index and text. Re-ingesting unchanged input yields the same IDs,
// so upserts keyed on it replace instead of duplicating.
func (c Chunk) ID() string {
	h := sha256.New()
	h.Write([]byte(c.sourceID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.unitIndex)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.chunkIndex)))
	h.Write([]byte{0})
	h.Write([]byte(c.text))
	return hex.EncodeToString(h.Sum(nil))
}

// Excerpt returns the first n runes of the text.
func (c Chunk) Excerpt(n int) string {
	i := 0
	for pos := range c.text {
		if i == n {
			return c.text[:pos]
		}
		i++
	}
	return c.text
}
