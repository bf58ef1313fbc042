package pdfqa

import (
	"context"
	"strings"
	"sync"

	domanswer "github.com/kailas-cloud/pdfqa/internal/domain/answer"
	domusage "github.com/kailas-cloud/pdfqa/internal/domain/usage"
	healthuc "github.com/kailas-cloud/pdfqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/pdfqa/internal/usecase/ingest"
)

type mockIngest struct {
	ingestFn func(ctx context.Context, dir string) (ingestuc.Report, error)
}

func (m *mockIngest) Ingest(ctx context.Context, dir string) (ingestuc.Report, error) {
	return m.ingestFn(ctx, dir)
}

type mockAnswer struct {
	answerFn func(ctx context.Context, q string) (domanswer.Answer, error)
}

func (m *mockAnswer) Answer(ctx context.Context, q string) (domanswer.Answer, error) {
	return m.answerFn(ctx, q)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockUsage struct {
	report domusage.Report
}

func (m *mockUsage) GetReport(context.Context, domusage.Period) domusage.Report { return m.report }

// vocabEmbedder embeds text as word counts over a fixed vocabulary.
type vocabEmbedder struct {
	vocab []string
	calls int
	mu    sync.Mutex
	err   error
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: []string{"a", "b", "3", "5", "items", "has"}}
}

func (e *vocabEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	vec := make([]float32, len(e.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == '.' || r == '?' || r == '\n'
	})
	for _, w := range words {
		for i, v := range e.vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return EmbeddingResult{Embedding: vec, PromptTokens: len(words), TotalTokens: len(words)}, nil
}

// fakeGenerator records prompts and answers with a fixed text.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ GenerateOptions) (GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return GenerationResult{}, g.err
	}
	return GenerationResult{Text: g.reply, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

// pagesExtractor returns fixed pages for any path.
type pagesExtractor struct {
	pages []string
}

func (p pagesExtractor) Extract(context.Context, string) ([]string, error) {
	return p.pages, nil
}
