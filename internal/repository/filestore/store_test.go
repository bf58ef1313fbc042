package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

func mustOpen(t *testing.T, dir string, opts Options) *Store {
	t.Helper()
	s, err := Open(dir, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func testPassage(source string, unit int, text string, vec ...float32) passage.Passage {
	return passage.New(chunk.New(source, unit, 0, text), vec)
}

func TestSearch_TopKOrdering(t *testing.T) {
	s := mustOpen(t, t.TempDir(), Options{Dim: 2})
	defer s.Close()
	ctx := context.Background()

	err := s.Upsert(ctx, []passage.Passage{
		testPassage("a.pdf", 0, "east", 1, 0),
		testPassage("a.pdf", 1, "north-east", 1, 1),
		testPassage("a.pdf", 2, "north", 0, 1),
		testPassage("a.pdf", 3, "west", -1, 0),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.Search(ctx, []float32{2, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	want := []string{"east", "north-east", "north"}
	for i, h := range hits {
		if h.Passage().Chunk().Text() != want[i] {
			t.Errorf("hit %d: expected %q, got %q", i, want[i], h.Passage().Chunk().Text())
		}
		if i > 0 && h.Score() > hits[i-1].Score() {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, h.Score(), hits[i-1].Score())
		}
	}
	if hits[0].Score() < 0.999 {
		t.Errorf("expected cosine ~1 for identical direction, got %v", hits[0].Score())
	}

	all, err := s.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("expected min(k, size)=4 hits, got %d", len(all))
	}
}

func TestSearch_EmptyAndZeroK(t *testing.T) {
	s := mustOpen(t, t.TempDir(), Options{})
	defer s.Close()

	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected no hits on empty index, got %d / %v", len(hits), err)
	}
	hits, err = s.Search(context.Background(), []float32{1, 0}, 0)
	if err != nil || hits != nil {
		t.Fatalf("expected nil for k=0, got %v / %v", hits, err)
	}
}

func TestReopen_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := mustOpen(t, dir, Options{ModelID: "m1", Dim: 3})
	if err := s.Upsert(ctx, []passage.Passage{
		testPassage("a.pdf", 0, "A has 3 items.", 1, 0, 0),
		testPassage("a.pdf", 1, "B has 5 items.", 0, 1, 0),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{manifestFile, defaultRows, defaultVectors} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}

	reopened := mustOpen(t, dir, Options{ModelID: "m1", Dim: 3})
	defer reopened.Close()

	if n, _ := reopened.Count(ctx); n != 2 {
		t.Fatalf("expected 2 passages after reopen, got %d", n)
	}
	hits, err := reopened.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	c := hits[0].Passage().Chunk()
	if c.Text() != "B has 5 items." || c.SourceID() != "a.pdf" || c.UnitIndex() != 1 {
		t.Errorf("unexpected passage after reopen: %+v", c)
	}
	if m := reopened.Manifest(); m.Count != 2 || m.ModelID != "m1" || m.CreatedAt == "" {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	s := mustOpen(t, t.TempDir(), Options{Dim: 2})
	defer s.Close()
	ctx := context.Background()

	p := testPassage("a.pdf", 0, "same", 1, 0)
	for range 3 {
		if err := s.Upsert(ctx, []passage.Passage{p}); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected 1 passage after repeated upsert, got %d", n)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := mustOpen(t, t.TempDir(), Options{})
	defer s.Close()
	ctx := context.Background()

	if err := s.Upsert(ctx, []passage.Passage{testPassage("a", 0, "x", 1, 2, 3)}); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(ctx, []passage.Passage{testPassage("a", 1, "y", 1, 2)})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if _, err := s.Search(ctx, []float32{1}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch on query, got %v", err)
	}
}

func TestOpen_DimensionMismatchWithManifest(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, Options{Dim: 2})
	_ = s.Upsert(context.Background(), []passage.Passage{testPassage("a", 0, "x", 1, 0)})
	if err := s.Persist(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	_, err := Open(dir, Options{Dim: 1536})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}

	// the failed open must release the lock
	again := mustOpen(t, dir, Options{Dim: 2})
	_ = again.Close()
}

func TestOpen_LockHeld(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, Options{})
	defer s.Close()

	_, err := Open(dir, Options{LockTimeout: 50 * time.Millisecond})
	if !errors.Is(err, domain.ErrIndexPersistence) {
		t.Fatalf("expected ErrIndexPersistence while locked, got %v", err)
	}
}

func TestOpen_CorruptVectors(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, Options{Dim: 2})
	_ = s.Upsert(context.Background(), []passage.Passage{testPassage("a", 0, "x", 1, 0)})
	_ = s.Persist(context.Background())
	_ = s.Close()

	if err := os.WriteFile(filepath.Join(dir, defaultVectors), []byte{1, 2, 3}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir, Options{}); !errors.Is(err, domain.ErrIndexPersistence) {
		t.Fatalf("expected ErrIndexPersistence, got %v", err)
	}
}

func TestPersist_NoChangesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := mustOpen(t, dir, Options{Dim: 2})
	defer s.Close()

	if err := s.Persist(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); !os.IsNotExist(err) {
		t.Errorf("expected no manifest for an untouched index, got %v", err)
	}
}

func TestPersist_ManyPassages(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := mustOpen(t, dir, Options{Dim: 4})

	var batch []passage.Passage
	for i := range 250 {
		batch = append(batch, testPassage("big.pdf", i, fmt.Sprintf("page %d", i), float32(i), 1, 0, 0))
	}
	if err := s.Upsert(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := s.Persist(ctx); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	reopened := mustOpen(t, dir, Options{Dim: 4})
	defer reopened.Close()
	if n, _ := reopened.Count(ctx); n != 250 {
		t.Errorf("expected 250 passages, got %d", n)
	}
}
