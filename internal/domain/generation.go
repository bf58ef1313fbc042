package domain

import "context"

// GenerateOptions controls sampling for one generation call.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// GenerationResult is the model output plus token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (GenerationResult, error)
}
