package batch

// Status is the outcome of one ingestion batch.
type Status string

// Batch status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of one batch covering chunks [start, end).
type Result struct {
	start  int
	end    int
	status Status
	err    error
}

// NewOK creates a successful batch result.
func NewOK(start, end int) Result { return Result{start: start, end: end, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(start, end int, err error) Result {
	return Result{start: start, end: end, status: StatusError, err: err}
}

// Start returns the first chunk index of the batch.
func (r Result) Start() int { return r.start }

// End returns one past the last chunk index of the batch.
func (r Result) End() int { return r.end }

// Size returns the number of chunks in the batch.
func (r Result) Size() int { return r.end - r.start }

// Status returns the processing outcome.
func (r Result) Status() Status { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
