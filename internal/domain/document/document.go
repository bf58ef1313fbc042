package document

import "fmt"

// SourceDocument is the text of one page (or other unit) of a source file.
type SourceDocument struct {
	sourceID  string
	unitIndex int
	text      string
}

// New validates and creates a SourceDocument. Unit indexes start at 0.
func New(sourceID string, unitIndex int, text string) (SourceDocument, error) {
	if sourceID == "" {
		return SourceDocument{}, fmt.Errorf("source ID is required")
	}
	if unitIndex < 0 {
		return SourceDocument{}, fmt.Errorf("unit index must be >= 0, got %d", unitIndex)
	}
	return SourceDocument{sourceID: sourceID, unitIndex: unitIndex, text: text}, nil
}

// SourceID returns the file name the text came from.
func (d SourceDocument) SourceID() string { return d.sourceID }

// UnitIndex returns the zero-based page or unit number.
func (d SourceDocument) UnitIndex() int { return d.unitIndex }

// Text returns the extracted text.
func (d SourceDocument) Text() string { return d.text }
