package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/pdfqa/internal/domain"
)

// parseAPIError turns a client error into a readable error wrapping wrap.
// HTTP 429 additionally wraps domain.ErrRateLimited, other 4xx statuses
// wrap domain.ErrProviderRejected.
func parseAPIError(op string, err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return statusError(op, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(op, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", op, err, wrap)
}

func statusError(op string, status int, detail string, wrap error) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s API error %d: %s: %w: %w", op, status, detail, domain.ErrRateLimited, wrap)
	}
	if domain.RejectedStatus(status) {
		return fmt.Errorf("%s API error %d: %s: %w: %w", op, status, detail, domain.ErrProviderRejected, wrap)
	}
	return fmt.Errorf("%s API error %d: %s: %w", op, status, detail, wrap)
}

// extractDetail reads the "detail" field some OpenAI-compatible gateways return.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
