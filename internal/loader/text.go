package loader

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

// TextExtractor reads a UTF-8 text file as a single unit.
type TextExtractor struct{}

// Extract returns the whole file as unit 0.
func (TextExtractor) Extract(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read text: not valid UTF-8")
	}
	return []string{string(data)}, nil
}
