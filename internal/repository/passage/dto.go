package passage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	dompassage "github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Hash field names.
const (
	fieldSource = "source_id"
	fieldUnit   = "unit_index"
	fieldChunk  = "chunk_index"
	fieldText   = "text"
	fieldVector = "vector"

	metaModel = "model"
	metaDims  = "dimensions"
)

func keyPrefix(name string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, name)
}

func passageKey(name, id string) string {
	return keyPrefix(name) + id
}

func indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, name)
}

// metaKey lives outside the indexed prefix so FT never counts it.
func metaKey(name string) string {
	return fmt.Sprintf("%smeta:%s", domain.KeyPrefix, name)
}

func toHash(p dompassage.Passage) map[string]string {
	c := p.Chunk()
	return map[string]string{
		fieldSource: c.SourceID(),
		fieldUnit:   strconv.Itoa(c.UnitIndex()),
		fieldChunk:  strconv.Itoa(c.ChunkIndex()),
		fieldText:   c.Text(),
		fieldVector: vectorToBytes(p.Vector()),
	}
}

// fromHash rebuilds a passage from search fields. The vector is not returned
// by searches and stays empty.
func fromHash(fields map[string]string) dompassage.Passage {
	unit, _ := strconv.Atoi(fields[fieldUnit])
	idx, _ := strconv.Atoi(fields[fieldChunk])
	c := chunk.New(fields[fieldSource], unit, idx, fields[fieldText])
	return dompassage.New(c, nil)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
