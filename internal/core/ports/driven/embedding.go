package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: this is separate from VectorIndex, which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations must be deterministic: identical text with identical
// model configuration yields identical vectors. Search reproducibility
// depends on it.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// The result has one vector per input, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 384, 768, 1536).
	// This is determined by the model and must match the VectorIndex.
	Dimensions() int

	// ModelName returns the model identifier. It is persisted with the
	// index so that a model change is detected instead of silently
	// mixing embedding spaces.
	ModelName() string

	// Ping validates the backend is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
