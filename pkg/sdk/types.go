package pdfqa

import "time"

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Files         int // supported files found
	Documents     int // pages with text
	Chunks        int
	Indexed       int
	FailedBatches []FailedBatch
	SkippedFiles  []SkippedFile
	Duration      time.Duration
}

// Degraded reports a run that had chunks but indexed none of them.
func (r IngestReport) Degraded() bool { return r.Chunks > 0 && r.Indexed == 0 }

// FailedBatch is a range of chunks, [Start, End), that was not indexed.
type FailedBatch struct {
	Start int
	End   int
	Err   error
}

// SkippedFile is a source file that could not be read.
type SkippedFile struct {
	Source string
	Err    error
}

// Answer is the generated response and the passages it was built from.
// Sources are the retrieved context, not verified citations.
type Answer struct {
	Text     string
	Sources  []Source
	Fallback bool // true when nothing was retrieved
}

// Source is one retrieved passage.
type Source struct {
	Source  string // file name relative to the ingested folder
	Page    int    // 1-based
	Chunk   int
	Score   float64
	Text    string
	Excerpt string
}
