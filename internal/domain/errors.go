package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidQuestion signals an empty or malformed question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrDocumentRead signals a corrupt or unreadable source document.
	ErrDocumentRead = errors.New("document read failed")
	// ErrEmbeddingBatch signals a failed ingestion batch.
	ErrEmbeddingBatch = errors.New("embedding batch failed")
	// ErrIndexPersistence signals a failure to open or flush the vector index.
	ErrIndexPersistence = errors.New("index persistence failed")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a generation provider failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrContextTooLarge signals a prompt above the generation input limit.
	ErrContextTooLarge = errors.New("context too large")
	// ErrProviderRejected signals a request the provider refused as invalid
	// (bad key, unknown model, input over the model limit).
	ErrProviderRejected = errors.New("provider rejected request")
)

// ContextTooLargeError wraps ErrContextTooLarge with the offending size.
type ContextTooLargeError struct {
	Size  int
	Limit int
}

func (e *ContextTooLargeError) Error() string {
	return fmt.Sprintf("%s: prompt is %d chars, limit is %d", ErrContextTooLarge.Error(), e.Size, e.Limit)
}

func (e *ContextTooLargeError) Unwrap() error { return ErrContextTooLarge }

// RejectedStatus reports whether an HTTP status from a provider means the
// request itself is bad. 408 and 429 are transient.
func RejectedStatus(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

// NewContextTooLarge creates a context-too-large error.
func NewContextTooLarge(size, limit int) error {
	return &ContextTooLargeError{Size: size, Limit: limit}
}

// IsRetryable reports whether a provider call may succeed on another attempt.
// Budget exhaustion, oversized prompts and rejected requests fail the same way every time.
func IsRetryable(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrEmbeddingQuotaExceeded),
		errors.Is(err, ErrContextTooLarge),
		errors.Is(err, ErrProviderRejected),
		errors.Is(err, ErrInvalidQuestion),
		errors.Is(err, ErrVectorDimMismatch):
		return false
	}
	return true
}
