// Package loader reads a folder of source files into per-page documents.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/document"
)

// Extractor returns the text of each unit (page) of a file, in order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// ReadError reports a source file that could not be read. It matches
// domain.ErrDocumentRead as well as the underlying cause.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Source, e.Err) }

func (e *ReadError) Unwrap() []error { return []error{domain.ErrDocumentRead, e.Err} }

// Result is the outcome of loading a folder.
type Result struct {
	Documents []document.SourceDocument
	Failures  []*ReadError
	Files     int // supported files attempted
}

// Loader maps file extensions to extractors.
type Loader struct {
	extractors map[string]Extractor
	logger     *zap.Logger
}

// New creates a Loader for PDF, plain text and Markdown files.
func New() *Loader {
	text := TextExtractor{}
	return &Loader{
		extractors: map[string]Extractor{
			".pdf": PDFExtractor{},
			".txt": text,
			".md":  text,
		},
		logger: zap.NewNop(),
	}
}

// WithExtractor registers an extractor for an extension such as ".pdf".
func (l *Loader) WithExtractor(ext string, e Extractor) *Loader {
	l.extractors[strings.ToLower(ext)] = e
	return l
}

// WithExtensions restricts loading to the given extensions.
func (l *Loader) WithExtensions(exts []string) *Loader {
	keep := make(map[string]Extractor, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if e, ok := l.extractors[ext]; ok {
			keep[ext] = e
		}
	}
	l.extractors = keep
	return l
}

// WithLogger sets the logger.
func (l *Loader) WithLogger(logger *zap.Logger) *Loader {
	l.logger = logger
	return l
}

// Supports reports whether files with this name are loaded.
func (l *Loader) Supports(name string) bool {
	_, ok := l.extractors[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Load reads every supported file directly inside dir, in directory listing
// order. A file that fails to read is recorded in Result.Failures and skipped;
// only an unreadable dir or a cancelled context fails the call.
func (l *Loader) Load(ctx context.Context, dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var res Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("load %s: %w", dir, err)
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		extractor, ok := l.extractors[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}
		res.Files++

		docs, err := l.loadFile(ctx, extractor, dir, name)
		if err != nil {
			rerr := &ReadError{Source: name, Err: err}
			l.logger.Warn("Skipping unreadable document", zap.String("source", name), zap.Error(err))
			res.Failures = append(res.Failures, rerr)
			continue
		}
		l.logger.Debug("Document loaded", zap.String("source", name), zap.Int("units", len(docs)))
		res.Documents = append(res.Documents, docs...)
	}
	return res, nil
}

func (l *Loader) loadFile(
	ctx context.Context, e Extractor, dir, name string,
) ([]document.SourceDocument, error) {
	units, err := e.Extract(ctx, filepath.Join(dir, name))
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped into ReadError by the caller
	}

	docs := make([]document.SourceDocument, 0, len(units))
	for i, text := range units {
		text = norm.NFC.String(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		d, err := document.New(name, i, text)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
