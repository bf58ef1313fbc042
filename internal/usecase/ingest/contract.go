package ingest

import (
	"context"

	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/document"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
	"github.com/kailas-cloud/pdfqa/internal/loader"
)

// DocumentLoader reads a folder into per-page documents.
type DocumentLoader interface {
	Load(ctx context.Context, dir string) (loader.Result, error)
}

// Splitter cuts documents into chunks.
type Splitter interface {
	SplitAll(docs []document.SourceDocument) []chunk.Chunk
}

// Index stores passages and flushes them to durable storage.
type Index interface {
	Upsert(ctx context.Context, passages []passage.Passage) error
	Persist(ctx context.Context) error
}
