package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex
// using exact cosine similarity.
type VectorIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	dims    int
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{vectors: make(map[string][]float32)}
}

// Add inserts a vector for the given chunk ID.
func (idx *VectorIndex) Add(_ context.Context, chunkID string, embedding []float32) error {
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
	return nil
}

// Delete removes a vector from the index.
func (idx *VectorIndex) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, chunkID)
	return nil
}

// Search finds the k nearest neighbours by cosine similarity.
func (idx *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
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
			Similarity: CosineSimilarity(query, vec),
		})
	}

	// Tie-break on ID so equal scores order deterministically.
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
func (idx *VectorIndex) Has(_ context.Context, chunkID string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.vectors[chunkID]
	return ok, nil
}

// IDs returns every chunk ID present in the index.
func (idx *VectorIndex) IDs(_ context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.vectors))
	for id := range idx.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Flush is a no-op; the index lives in memory only.
func (idx *VectorIndex) Flush() error {
	return nil
}

// Close releases resources.
func (idx *VectorIndex) Close() error {
	return nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
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
