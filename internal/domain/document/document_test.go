package document

import "testing"

func TestNew_Valid(t *testing.T) {
	doc, err := New("contract.pdf", 2, "Delivery within 30 days.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.SourceID() != "contract.pdf" {
		t.Errorf("SourceID() = %q", doc.SourceID())
	}
	if doc.UnitIndex() != 2 {
		t.Errorf("UnitIndex() = %d, want 2", doc.UnitIndex())
	}
	if doc.Text() != "Delivery within 30 days." {
		t.Errorf("Text() = %q", doc.Text())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		sourceID string
		unit     int
	}{
		{"empty source", "", 0},
		{"negative unit", "a.pdf", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.sourceID, tt.unit, "text"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
