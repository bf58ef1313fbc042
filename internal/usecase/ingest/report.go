package ingest

import (
	"time"

	"github.com/kailas-cloud/pdfqa/internal/domain/batch"
	"github.com/kailas-cloud/pdfqa/internal/loader"
)

// Report summarizes one ingestion run.
type Report struct {
	Files     int // supported files found
	Documents int // pages with text
	Chunks    int
	Indexed   int
	Batches   []batch.Result
	Failures  []*loader.ReadError
	Duration  time.Duration
}

// FailedBatches returns the batches that were skipped.
func (r Report) FailedBatches() []batch.Result {
	var out []batch.Result
	for _, b := range r.Batches {
		if b.Status() == batch.StatusError {
			out = append(out, b)
		}
	}
	return out
}

// Degraded reports a run that had chunks to index but indexed none of them,
// typically because the embedding provider was unavailable throughout.
func (r Report) Degraded() bool {
	return r.Chunks > 0 && r.Indexed == 0
}

func (r Report) outcome() string {
	switch {
	case r.Degraded():
		return "degraded"
	case len(r.FailedBatches()) > 0 || len(r.Failures) > 0:
		return "partial"
	}
	return "ok"
}
