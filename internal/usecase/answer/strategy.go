package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Strategy selects how retrieved passages are assembled into prompts.
type Strategy string

// Assembly strategies.
const (
	// StrategyStuff puts every passage into one prompt.
	StrategyStuff Strategy = "stuff"
	// StrategyRefine answers from the first passage, then refines once per further passage.
	StrategyRefine Strategy = "refine"
	// StrategyMapReduce extracts from each passage separately, then combines the extracts.
	StrategyMapReduce Strategy = "map_reduce"
)

// ParseStrategy maps a config value to a Strategy. Empty means stuff.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyStuff, StrategyRefine, StrategyMapReduce:
		return Strategy(s), nil
	case "":
		return StrategyStuff, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// generateFunc runs one size-checked generation call.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// sizeCheck rejects a prompt longer than the limit.
type sizeCheck func(prompt string) error

func newSizeCheck(limit int) sizeCheck {
	return func(prompt string) error {
		if limit <= 0 {
			return nil
		}
		if n := utf8.RuneCountInString(prompt); n > limit {
			return domain.NewContextTooLarge(n, limit)
		}
		return nil
	}
}

// assemble runs strategy st over passages and returns the final text.
// Every prompt that can be built up front is size-checked before the
// first generator call.
func assemble(
	ctx context.Context, st Strategy, question string, passages []passage.Passage,
	check sizeCheck, gen generateFunc,
) (string, error) {
	switch st {
	case StrategyRefine:
		return assembleRefine(ctx, question, passages, check, gen)
	case StrategyMapReduce:
		return assembleMapReduce(ctx, question, passages, check, gen)
	default:
		prompt := stuffPrompt(question, passages)
		if err := check(prompt); err != nil {
			return "", err
		}
		return gen(ctx, prompt)
	}
}

func assembleRefine(
	ctx context.Context, question string, passages []passage.Passage,
	check sizeCheck, gen generateFunc,
) (string, error) {
	if err := check(refineInitialPrompt(question, passages[0])); err != nil {
		return "", err
	}
	// lower bound: each refine prompt with an empty running answer
	for _, p := range passages[1:] {
		if err := check(refinePrompt(question, "", p)); err != nil {
			return "", err
		}
	}

	current, err := gen(ctx, refineInitialPrompt(question, passages[0]))
	if err != nil {
		return "", err
	}
	for _, p := range passages[1:] {
		prompt := refinePrompt(question, current, p)
		if err := check(prompt); err != nil {
			return "", err
		}
		if current, err = gen(ctx, prompt); err != nil {
			return "", err
		}
	}
	return current, nil
}

func assembleMapReduce(
	ctx context.Context, question string, passages []passage.Passage,
	check sizeCheck, gen generateFunc,
) (string, error) {
	prompts := make([]string, len(passages))
	for i, p := range passages {
		prompts[i] = mapPrompt(question, p)
		if err := check(prompts[i]); err != nil {
			return "", err
		}
	}

	extracts := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		out, err := gen(ctx, prompt)
		if err != nil {
			return "", err
		}
		if out = strings.TrimSpace(out); out != "" {
			extracts = append(extracts, out)
		}
	}

	prompt := reducePrompt(question, extracts)
	if err := check(prompt); err != nil {
		return "", err
	}
	return gen(ctx, prompt)
}
