package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// Vectors are keyed by chunk ID; the keys correspond 1:1 with chunk
// rows in the DocumentStore, an invariant the coordinator enforces.
type VectorIndex interface {
	// Add inserts a vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index. Deleting an absent ID is
	// not an error.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector by
	// cosine similarity, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Has reports whether a vector exists for the chunk ID.
	Has(ctx context.Context, chunkID string) (bool, error)

	// IDs returns every chunk ID present in the index, for
	// reconciliation against the metadata store.
	IDs(ctx context.Context) ([]string, error)

	// Flush persists buffered index state. The coordinator calls it
	// after every committed write, bounding what a crash can lose to
	// the write in flight.
	Flush() error

	// Close flushes the index to disk and releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
