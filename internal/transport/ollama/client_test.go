package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "nomic-embed-text" || len(req.Input) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"embeddings":        [][]float32{{1, 0}, {0, 1}},
			"prompt_eval_count": 9,
		})
	}))
	defer srv.Close()

	emb, err := NewEmbedder(&Config{BaseURL: srv.URL, Model: "nomic-embed-text"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][1] != 1 {
		t.Errorf("unexpected embeddings %v", res.Embeddings)
	}
	if res.TotalTokens != 9 {
		t.Errorf("expected TotalTokens=9, got %d", res.TotalTokens)
	}
}

func TestEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[[1,2]]}`))
	}))
	defer srv.Close()

	emb, _ := NewEmbedder(&Config{BaseURL: srv.URL, Model: "m"})
	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"m\" not found"}`))
	}))
	defer srv.Close()

	emb, _ := NewEmbedder(&Config{BaseURL: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), "a")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Errorf("expected unknown model to be rejected, got %v", err)
	}
}

func TestGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model   string         `json:"model"`
			Prompt  string         `json:"prompt"`
			Stream  *bool          `json:"stream"`
			Options map[string]any `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Stream == nil || *req.Stream {
			t.Error("expected stream=false")
		}
		if req.Options["num_predict"] != float64(128) {
			t.Errorf("expected num_predict=128, got %v", req.Options["num_predict"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"response":          "B has 5 items.",
			"done":              true,
			"prompt_eval_count": 40,
			"eval_count":        6,
		})
	}))
	defer srv.Close()

	gen, err := NewGenerator(&Config{BaseURL: srv.URL, Model: "llama3.2"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := gen.Generate(context.Background(), "How many items does B have?",
		domain.GenerateOptions{MaxTokens: 128})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != "B has 5 items." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.PromptTokens != 40 || res.CompletionTokens != 6 || res.TotalTokens != 46 {
		t.Errorf("unexpected usage %+v", res)
	}
}

func TestNewEmbedder_BadURL(t *testing.T) {
	if _, err := NewEmbedder(&Config{BaseURL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
