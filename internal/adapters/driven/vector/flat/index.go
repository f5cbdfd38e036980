// Package flat implements a file-backed exact-cosine vector index.
//
// Vectors are held in memory and scanned linearly on search, which is
// exact and fast enough for personal archives (tens of thousands of
// chunks). The index persists to a single binary file; writes go to a
// temp file first and rename into place so a crash never leaves a
// half-written index behind.
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// File format: magic, version, dimension count, entry count, then one
// entry per vector (id length, id bytes, float32 values).
const (
	fileMagic   = "NARCVEC1"
	fileVersion = uint32(1)

	// maxIDLen bounds chunk ID length when loading, guarding against
	// corrupt files.
	maxIDLen = 1024
)

// ErrCorruptIndex is returned when the index file cannot be parsed.
var ErrCorruptIndex = errors.New("vector index file is corrupt")

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a persistent flat vector index.
type Index struct {
	mu      sync.RWMutex
	path    string
	vectors map[string][]float32
	dims    int
	dirty   bool
}

// Open loads the index at the given data directory, creating an empty
// one if no file exists yet. If dataDir is empty, defaults to
// ~/.neonarc/data.
func Open(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".neonarc", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	idx := &Index{
		path:    filepath.Join(dataDir, "vectors.bin"),
		vectors: make(map[string][]float32),
	}

	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add inserts a vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if chunkID == "" || len(embedding) == 0 {
		return domain.ErrInvalidInput
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dims == 0 {
		idx.dims = len(embedding)
	} else if len(embedding) != idx.dims {
		return domain.ErrDimensionMismatch
	}

	idx.vectors[chunkID] = append([]float32(nil), embedding...)
	idx.dirty = true
	return nil
}

// Delete removes a vector. Deleting an absent ID is not an error.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.vectors[chunkID]; ok {
		delete(idx.vectors, chunkID)
		idx.dirty = true
	}
	return nil
}

// Search scans all vectors and returns the k most similar, most
// similar first. Ties order by chunk ID so results are deterministic.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dims != 0 && len(query) != idx.dims {
		return nil, domain.ErrDimensionMismatch
	}

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		hits = append(hits, driven.VectorHit{
			ChunkID:    id,
			Similarity: cosineSimilarity(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Has reports whether a vector exists for the chunk ID.
func (idx *Index) Has(_ context.Context, chunkID string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.vectors[chunkID]
	return ok, nil
}

// IDs returns every chunk ID present in the index.
func (idx *Index) IDs(_ context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.vectors))
	for id := range idx.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Flush writes the index to disk if it has unsaved changes.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.flushLocked()
}

// Close flushes the index to disk.
func (idx *Index) Close() error {
	return idx.Flush()
}

// Len returns the number of vectors in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func (idx *Index) flushLocked() error {
	if !idx.dirty {
		return nil
	}

	tmp := idx.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}

	if err := idx.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index file: %w", err)
	}

	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}

	idx.dirty = false
	return nil
}

func (idx *Index) write(f *os.File) error {
	w := bufio.NewWriter(f)

	if _, err := w.WriteString(fileMagic); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, v := range []uint32{fileVersion, uint32(idx.dims), uint32(len(idx.vectors))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	// Stable order keeps the file reproducible for a given state.
	ids := make([]string, 0, len(idx.vectors))
	for id := range idx.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
		if _, err := w.WriteString(id); err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
		for _, f32 := range idx.vectors[id] {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(f32)); err != nil {
				return fmt.Errorf("writing entry: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	return nil
}

func (idx *Index) load() error {
	f, err := os.Open(idx.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // fresh index
	}
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("%w: reading magic: %v", ErrCorruptIndex, err)
	}
	if string(magic) != fileMagic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic)
	}

	var version, dims, count uint32
	for _, dst := range []*uint32{&version, &dims, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return fmt.Errorf("%w: reading header: %v", ErrCorruptIndex, err)
		}
	}
	if version != fileVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, version)
	}

	idx.dims = int(dims)
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("%w: reading entry: %v", ErrCorruptIndex, err)
		}
		if idLen == 0 || idLen > maxIDLen {
			return fmt.Errorf("%w: id length %d", ErrCorruptIndex, idLen)
		}

		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return fmt.Errorf("%w: reading entry: %v", ErrCorruptIndex, err)
		}

		vec := make([]float32, idx.dims)
		for j := range vec {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return fmt.Errorf("%w: reading entry: %v", ErrCorruptIndex, err)
			}
			vec[j] = math.Float32frombits(bits)
		}

		idx.vectors[string(idBytes)] = vec
	}

	return nil
}

// cosineSimilarity computes cosine similarity; zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
