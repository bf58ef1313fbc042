package chi

import (
	"errors"
	"time"

	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	domusage "github.com/kailas-cloud/pdfqa/internal/domain/usage"
	"github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
)

type ingestRequest struct {
	Dir string `json:"dir"`
}

type failedBatch struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Code  ErrorCode `json:"code"`
	Error string    `json:"error"`
}

type skippedFile struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type ingestResponse struct {
	Dir           string        `json:"dir"`
	Files         int           `json:"files"`
	Documents     int           `json:"documents"`
	Chunks        int           `json:"chunks"`
	Indexed       int           `json:"indexed"`
	Batches       int           `json:"batches"`
	FailedBatches []failedBatch `json:"failed_batches"`
	SkippedFiles  []skippedFile `json:"skipped_files"`
	Degraded      bool          `json:"degraded"`
	DurationMS    int64         `json:"duration_ms"`
}

type askRequest struct {
	Question string `json:"question"`
}

type sourceItem struct {
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Chunk   int     `json:"chunk"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type askResponse struct {
	Answer   string       `json:"answer"`
	Fallback bool         `json:"fallback"`
	Sources  []sourceItem `json:"sources"`
}

type usageResponse struct {
	Period          string     `json:"period"`
	PeriodStartAt   *time.Time `json:"period_start_at,omitempty"`
	PeriodEndAt     *time.Time `json:"period_end_at,omitempty"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	Exhausted       bool       `json:"exhausted"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Passages int               `json:"passages"`
	Version  string            `json:"version"`
}

func ingestReportToResponse(dir string, r ingest.Report) ingestResponse {
	resp := ingestResponse{
		Dir:           dir,
		Files:         r.Files,
		Documents:     r.Documents,
		Chunks:        r.Chunks,
		Indexed:       r.Indexed,
		Batches:       len(r.Batches),
		FailedBatches: []failedBatch{},
		SkippedFiles:  []skippedFile{},
		Degraded:      r.Degraded(),
		DurationMS:    r.Duration.Milliseconds(),
	}
	for _, b := range r.FailedBatches() {
		code, msg := safeError(b.Err())
		resp.FailedBatches = append(resp.FailedBatches, failedBatch{
			Start: b.Start(), End: b.End(), Code: code, Error: msg,
		})
	}
	for _, f := range r.Failures {
		resp.SkippedFiles = append(resp.SkippedFiles, skippedFile{Source: f.Source, Error: f.Err.Error()})
	}
	return resp
}

func answerToResponse(a domanswer.Answer, excerptRunes int) askResponse {
	resp := askResponse{
		Answer:   a.Text(),
		Fallback: a.Fallback(),
		Sources:  make([]sourceItem, 0, len(a.Sources())),
	}
	for i, p := range a.Sources() {
		c := p.Chunk()
		resp.Sources = append(resp.Sources, sourceItem{
			Source:  c.SourceID(),
			Page:    c.UnitIndex() + 1,
			Chunk:   c.ChunkIndex(),
			Score:   a.Score(i),
			Excerpt: c.Excerpt(excerptRunes),
		})
	}
	return resp
}

func usageReportToResponse(r domusage.Report) usageResponse {
	resp := usageResponse{
		Period:          string(r.Period()),
		TokensUsed:      r.TokensUsed(),
		TokensLimit:     r.TokensLimit(),
		TokensRemaining: r.TokensRemaining(),
		Exhausted:       r.Exhausted(),
	}
	if r.PeriodStart() > 0 {
		start := time.UnixMilli(r.PeriodStart()).UTC()
		end := time.UnixMilli(r.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	return resp
}

// safeError returns the code and sentinel message for err without internals.
func safeError(err error) (ErrorCode, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.code, m.target.Error()
		}
	}
	return CodeInternalError, "internal error"
}
