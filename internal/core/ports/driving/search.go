package driving

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// Searcher answers natural-language queries against the archive.
type Searcher interface {
	// Search embeds the query, runs similarity search over chunk
	// vectors, applies the filters and returns ranked, deduplicated
	// documents. Results are deterministic for a fixed corpus and
	// model configuration.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Similar ranks documents by similarity to the document at the
	// given path, using its own chunk embeddings as the query set.
	// The document itself is excluded from the results.
	Similar(ctx context.Context, path string, limit int) ([]domain.SearchResult, error)

	// Context returns the chunks surrounding the given chunk in its
	// document, for displaying a hit in context.
	Context(ctx context.Context, chunkID string, radius int) ([]domain.Chunk, error)
}
