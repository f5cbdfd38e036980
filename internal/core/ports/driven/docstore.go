package driven

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// Meta keys persisted alongside documents. The embedding model recorded
// at first ingestion is checked on every later run: mixing embedding
// spaces silently corrupts ranking.
const (
	MetaEmbeddingModel      = "embedding_model"
	MetaEmbeddingDimensions = "embedding_dimensions"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// UpsertDocument stores or updates a document keyed by its absolute
	// path. At most one row per path exists; re-ingesting updates it.
	UpsertDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByPath retrieves a document by absolute path.
	GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error)

	// SetDocumentStatus updates a document's extraction status and
	// failure reason.
	SetDocumentStatus(ctx context.Context, id string, status domain.ExtractionStatus, reason string) error

	// UpdateDocumentPath moves a document to a new path without
	// touching its chunks (rename with unchanged content).
	UpdateDocumentPath(ctx context.Context, id, newPath string) error

	// ListDocuments returns documents matching the filters, ordered by path.
	ListDocuments(ctx context.Context, filters domain.SearchFilters) ([]domain.Document, error)

	// DeleteDocument removes a document row. Its chunks must already be
	// gone; the coordinator enforces the deletion order.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunks stores chunks in one transaction.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a document ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteChunks removes all chunks for a document and returns the
	// IDs removed so vectors can be deleted under the same keys.
	DeleteChunks(ctx context.Context, documentID string) ([]string, error)

	// DeleteChunksByID removes specific chunk rows (partial-write repair).
	DeleteChunksByID(ctx context.Context, ids []string) error

	// AllChunkIDs returns every chunk ID in the store, for
	// reconciliation against the vector index.
	AllChunkIDs(ctx context.Context) ([]string, error)

	// GetMeta retrieves a store-level metadata value.
	// Returns domain.ErrNotFound if the key has never been set.
	GetMeta(ctx context.Context, key string) (string, error)

	// SetMeta stores a store-level metadata value.
	SetMeta(ctx context.Context, key, value string) error

	// Close releases resources.
	Close() error
}
