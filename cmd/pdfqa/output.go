package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	"github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	boldRed   = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func printIngestReport(w io.Writer, dir string, r ingest.Report) {
	fmt.Fprintf(w, "%s %s\n", boldGreen("Ingested"), dir)
	fmt.Fprintf(w, "  files:     %d\n", r.Files)
	fmt.Fprintf(w, "  pages:     %d\n", r.Documents)
	fmt.Fprintf(w, "  chunks:    %d\n", r.Chunks)
	fmt.Fprintf(w, "  indexed:   %d\n", r.Indexed)
	fmt.Fprintf(w, "  batches:   %d\n", len(r.Batches))
	fmt.Fprintf(w, "  took:      %s\n", r.Duration.Round(time.Millisecond))

	for _, f := range r.Failures {
		fmt.Fprintf(w, "%s %s: %v\n", yellow("skipped"), f.Source, f.Err)
	}
	for _, b := range r.FailedBatches() {
		fmt.Fprintf(w, "%s chunks [%d, %d): %v\n", yellow("failed batch"), b.Start(), b.End(), b.Err())
	}
	if r.Degraded() {
		fmt.Fprintf(w, "%s no chunk was indexed; check the embedding provider\n", boldRed("WARNING"))
	}
}

func printAnswer(w io.Writer, a domanswer.Answer) {
	fmt.Fprintf(w, "%s %s\n", boldGreen("Answer:"), a.Text())
	if a.Fallback() {
		return
	}

	fmt.Fprintf(w, "\n%s\n", boldCyan("Sources:"))
	for i, p := range a.Sources() {
		c := p.Chunk()
		fmt.Fprintf(w, "%d. %s (page %d, score %.3f)\n", i+1, c.SourceID(), c.UnitIndex()+1, a.Score(i))
		fmt.Fprintf(w, "   %s\n", faint(c.Excerpt(domain.DefaultExcerptRunes)))
	}
}
