package pdfqa

import "github.com/kailas-cloud/pdfqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuestion        = domain.ErrInvalidQuestion
	ErrDocumentRead           = domain.ErrDocumentRead
	ErrEmbeddingBatch         = domain.ErrEmbeddingBatch
	ErrIndexPersistence       = domain.ErrIndexPersistence
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrGenerationFailed       = domain.ErrGenerationFailed
	ErrContextTooLarge        = domain.ErrContextTooLarge
	ErrProviderRejected       = domain.ErrProviderRejected
)
