package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	logpkg "github.com/kailas-cloud/pdfqa/internal/logger"
)

// ErrorCode is the machine-readable error kind in an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeInvalidQuestion   ErrorCode = "invalid_question"
	CodeDocumentsNotFound ErrorCode = "documents_not_found"
	CodeIngestInProgress  ErrorCode = "ingest_in_progress"
	CodeContextTooLarge   ErrorCode = "context_too_large"
	CodeVectorDimMismatch ErrorCode = "vector_dim_mismatch"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeQuotaExceeded     ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	CodeEmbeddingBatch    ErrorCode = "embedding_batch_failed"
	CodeGenerationFailed  ErrorCode = "generation_failed"
	CodeIndexPersistence  ErrorCode = "index_persistence_failed"
	CodeTimeout           ErrorCode = "timeout"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   ErrorCode
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidQuestion, http.StatusBadRequest, CodeInvalidQuestion},
	{domain.ErrContextTooLarge, http.StatusRequestEntityTooLarge, CodeContextTooLarge},
	{domain.ErrVectorDimMismatch, http.StatusConflict, CodeVectorDimMismatch},
	{domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeQuotaExceeded},
	{domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationFailed},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider},
	{domain.ErrEmbeddingBatch, http.StatusBadGateway, CodeEmbeddingBatch},
	{domain.ErrIndexPersistence, http.StatusInternalServerError, CodeIndexPersistence},
	{fs.ErrNotExist, http.StatusNotFound, CodeDocumentsNotFound},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
}

// handleDomainError maps err to a status and a safe message. Internal
// details are logged, never returned.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.target.Error()
			var ctl *domain.ContextTooLargeError
			if errors.As(err, &ctl) {
				msg = ctl.Error()
			}
			logpkg.FromContext(r.Context()).Warn("Request failed",
				zap.String("code", string(m.code)), zap.Error(err))
			writeError(w, m.status, m.code, msg)
			return
		}
	}
	logpkg.FromContext(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
