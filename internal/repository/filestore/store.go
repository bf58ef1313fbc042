// Package filestore is a directory-backed vector index: a JSON manifest,
// passages as JSON lines and vectors as little-endian float32. The whole
// index is held in memory and searched by brute-force cosine similarity.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// DefaultLockTimeout bounds how long Open waits for another writer.
const DefaultLockTimeout = 5 * time.Second

// Options configure Open.
type Options struct {
	// ModelID is recorded in the manifest; a different stored value is logged.
	ModelID string
	// Dim is the expected vector dimension. 0 accepts whatever the index holds
	// or the first upserted vector.
	Dim         int
	LockTimeout time.Duration
	Logger      *zap.Logger
}

// Store is an open index. It holds the directory lock until Close.
type Store struct {
	dir    string
	lock   *flock.Flock
	logger *zap.Logger

	mu       sync.RWMutex
	manifest Manifest
	rows     []row
	vectors  [][]float32 // unit length, same order as rows
	pos      map[string]int
	dirty    bool
	now      func() time.Time
}

// Open creates dir if needed, locks it and loads any persisted index.
func Open(dir string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create index dir %s: %w: %w", dir, domain.ErrIndexPersistence, err)
	}
	l, err := acquireLock(dir, opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", dir, domain.ErrIndexPersistence, err)
	}

	s := &Store{
		dir:    dir,
		lock:   l,
		logger: logger,
		pos:    map[string]int{},
		now:    time.Now,
	}
	if err := s.load(opts); err != nil {
		_ = l.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(opts Options) error {
	m, err := readManifest(s.dir)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", s.dir, domain.ErrIndexPersistence, err)
	}
	if m == nil {
		s.manifest = Manifest{
			IndexVersion: indexVersion,
			ModelID:      opts.ModelID,
			Dim:          opts.Dim,
			Normalize:    true,
			VectorFile:   defaultVectors,
			PassagesFile: defaultRows,
		}
		s.logger.Info("Created empty index", zap.String("dir", s.dir))
		return nil
	}

	if opts.Dim > 0 && m.Dim != opts.Dim {
		return fmt.Errorf("index %s holds %d-dim vectors, configured %d: %w",
			s.dir, m.Dim, opts.Dim, domain.ErrVectorDimMismatch)
	}
	if opts.ModelID != "" && m.ModelID != opts.ModelID {
		s.logger.Warn("Index was built with a different embedding model; retrieval quality may degrade",
			zap.String("dir", s.dir),
			zap.String("stored_model", m.ModelID),
			zap.String("configured_model", opts.ModelID),
		)
	}

	rows, err := loadRows(filepath.Join(s.dir, m.PassagesFile))
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", s.dir, domain.ErrIndexPersistence, err)
	}
	vectors, err := loadVectors(filepath.Join(s.dir, m.VectorFile), len(rows), m.Dim)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", s.dir, domain.ErrIndexPersistence, err)
	}

	s.manifest = *m
	s.rows = rows
	s.vectors = vectors
	for i, r := range rows {
		s.pos[r.ID] = i
	}
	s.logger.Info("Index loaded",
		zap.String("dir", s.dir),
		zap.Int("passages", len(rows)),
		zap.Int("dim", m.Dim),
	)
	return nil
}

// Upsert adds passages, replacing any with the same chunk ID.
// All vectors must share the index dimension.
func (s *Store) Upsert(_ context.Context, passages []passage.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.manifest.Dim
	if dim == 0 {
		dim = len(passages[0].Vector())
	}
	for _, p := range passages {
		if len(p.Vector()) != dim || dim == 0 {
			return fmt.Errorf("passage %s: got %d dims, want %d: %w",
				p.ID(), len(p.Vector()), dim, domain.ErrVectorDimMismatch)
		}
	}
	s.manifest.Dim = dim

	for _, p := range passages {
		c := p.Chunk()
		r := row{
			ID:         p.ID(),
			SourceID:   c.SourceID(),
			UnitIndex:  c.UnitIndex(),
			ChunkIndex: c.ChunkIndex(),
			Text:       c.Text(),
		}
		vec := normalizeL2(p.Vector())
		if i, ok := s.pos[r.ID]; ok {
			s.rows[i] = r
			s.vectors[i] = vec
			continue
		}
		s.pos[r.ID] = len(s.rows)
		s.rows = append(s.rows, r)
		s.vectors = append(s.vectors, vec)
	}
	s.dirty = true
	return nil
}

// Search returns the min(k, Count) passages most similar to vector, best first.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]passage.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return nil, nil
	}
	if len(vector) != s.manifest.Dim {
		return nil, fmt.Errorf("query: got %d dims, want %d: %w",
			len(vector), s.manifest.Dim, domain.ErrVectorDimMismatch)
	}

	q := normalizeL2(vector)
	hits := make([]passage.Hit, len(s.rows))
	for i, r := range s.rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("search: %w", err)
			}
		}
		c := chunk.New(r.SourceID, r.UnitIndex, r.ChunkIndex, r.Text)
		hits[i] = passage.NewHit(passage.New(c, nil), dot(q, s.vectors[i]))
	}
	passage.Sort(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of passages, persisted or not.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// Persist writes the index to disk if it changed since the last Persist.
// Data files are replaced before the manifest, so a crash leaves either
// the old or the new manifest pointing at complete files.
func (s *Store) Persist(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	m := s.manifest
	if m.CreatedAt == "" {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	m.Count = len(s.rows)

	if err := s.writeFiles(m); err != nil {
		return fmt.Errorf("persist %s: %w: %w", s.dir, domain.ErrIndexPersistence, err)
	}

	s.manifest = m
	s.dirty = false
	s.logger.Info("Index persisted", zap.String("dir", s.dir), zap.Int("passages", m.Count))
	return nil
}

func (s *Store) writeFiles(m Manifest) error {
	err := writeAtomic(filepath.Join(s.dir, m.PassagesFile), func(w io.Writer) error {
		return writeRows(w, s.rows)
	})
	if err != nil {
		return err
	}
	err = writeAtomic(filepath.Join(s.dir, m.VectorFile), func(w io.Writer) error {
		return writeVectors(w, s.vectors)
	})
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, manifestFile), func(w io.Writer) error {
		return writeManifest(w, m)
	})
}

// Close releases the directory lock. Changes not persisted are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	if s.dirty {
		s.logger.Warn("Closing index with unpersisted changes", zap.String("dir", s.dir))
	}
	err := s.lock.Unlock()
	s.lock = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("unlock %s: %w", s.dir, err)
	}
	return nil
}

// Manifest returns a copy of the current manifest.
func (s *Store) Manifest() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}
