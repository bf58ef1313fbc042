package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestContextTooLargeError(t *testing.T) {
	err := fmt.Errorf("assemble: %w", NewContextTooLarge(5000, 4000))
	if !errors.Is(err, ErrContextTooLarge) {
		t.Fatalf("expected ErrContextTooLarge, got %v", err)
	}
	var ctl *ContextTooLargeError
	if !errors.As(err, &ctl) {
		t.Fatal("expected ContextTooLargeError")
	}
	if ctl.Size != 5000 || ctl.Limit != 4000 {
		t.Errorf("expected 5000/4000, got %d/%d", ctl.Size, ctl.Limit)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider", fmt.Errorf("x: %w", ErrEmbeddingProviderError), true},
		{"rate limited", ErrRateLimited, true},
		{"quota", fmt.Errorf("x: %w", ErrEmbeddingQuotaExceeded), false},
		{"too large", NewContextTooLarge(2, 1), false},
		{"deadline", context.DeadlineExceeded, true},
		{"rejected", fmt.Errorf("x: %w: %w", ErrProviderRejected, ErrGenerationFailed), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTokenUsage(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddEmbedding(12)
	UsageFromContext(ctx).AddGeneration(30)
	if u.EmbeddingTokens() != 12 || u.GenerationTokens() != 30 {
		t.Errorf("expected 12/30, got %d/%d", u.EmbeddingTokens(), u.GenerationTokens())
	}

	missing := UsageFromContext(context.Background())
	missing.AddEmbedding(5)
	if missing.EmbeddingTokens() != 0 {
		t.Error("expected nil collector to ignore writes")
	}
}

func TestRejectedStatus(t *testing.T) {
	for status, want := range map[int]bool{
		400: true, 401: true, 403: true, 404: true, 413: true,
		408: false, 429: false, 500: false, 503: false, 200: false,
	} {
		if got := RejectedStatus(status); got != want {
			t.Errorf("RejectedStatus(%d): expected %v, got %v", status, want, got)
		}
	}
}
