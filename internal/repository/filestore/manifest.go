package filestore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	manifestFile   = "index_manifest.json"
	lockFile       = ".lock"
	indexVersion   = 1
	defaultVectors = "vectors.f32"
	defaultRows    = "passages.jsonl"
)

// Manifest describes the files of a persisted index and how to read them.
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	ModelID      string `json:"model_id"`
	Dim          int    `json:"dim"`
	Count        int    `json:"count"`
	Normalize    bool   `json:"normalize"`
	VectorFile   string `json:"vector_file"`
	PassagesFile string `json:"passages_file"`
}

// row is one line of passages.jsonl. Its vector sits at the same position in vectors.f32.
type row struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	UnitIndex  int    `json:"unit_index"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// readManifest returns (nil, nil) when dir holds no index yet.
func readManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON %s: %w", path, err)
	}
	if m.Dim <= 0 {
		return nil, fmt.Errorf("invalid dim in manifest: %d", m.Dim)
	}
	if m.VectorFile == "" {
		m.VectorFile = defaultVectors
	}
	if m.PassagesFile == "" {
		m.PassagesFile = defaultRows
	}
	return &m, nil
}

func loadRows(path string) ([]row, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("cannot open passages file %s: %w", path, err)
	}
	defer f.Close()

	var out []row
	scanner := bufio.NewScanner(f)
	// passage text can exceed the default 64KiB token size
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("invalid passages JSONL %s: %w", path, err)
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read passages file %s: %w", path, err)
	}
	return out, nil
}

func loadVectors(path string, n, dim int) ([][]float32, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	expected := int64(n * dim * 4)
	if st.Size() != expected {
		return nil, fmt.Errorf("vector file size mismatch: got %d want %d (passages=%d dim=%d)",
			st.Size(), expected, n, dim)
	}

	flat := make([]float32, n*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}

	out := make([][]float32, n)
	for i := range out {
		out[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return out, nil
}

// writeAtomic writes via a temp file in the same directory and renames it
// over path, so readers never observe a half-written file.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("cannot replace %s: %w", path, err)
	}
	return nil
}

func writeRows(w io.Writer, rows []row) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return fmt.Errorf("encode passage %s: %w", rows[i].ID, err)
		}
	}
	return nil
}

func writeVectors(w io.Writer, vectors [][]float32) error {
	for _, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("cannot write vectors: %w", err)
		}
	}
	return nil
}

func writeManifest(w io.Writer, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
