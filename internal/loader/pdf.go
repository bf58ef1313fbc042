package loader

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor returns one text unit per PDF page.
type PDFExtractor struct{}

// Extract reads the plain text of every page. Pages without content yield "".
// The parser panics on some malformed files; that is reported as an error.
func (PDFExtractor) Extract(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck // context errors pass through
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[i-1] = text
	}
	return pages, nil
}
