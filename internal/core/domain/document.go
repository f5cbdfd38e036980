package domain

import "time"

// ExtractionStatus tracks how far a document made it through ingestion.
type ExtractionStatus string

// Document extraction statuses.
const (
	// StatusPending means ingestion has started but not completed.
	StatusPending ExtractionStatus = "pending"

	// StatusExtracted means text, chunks and vectors are all committed.
	// Only extracted documents are visible to search.
	StatusExtracted ExtractionStatus = "extracted"

	// StatusFailed means extraction, embedding or storage failed.
	StatusFailed ExtractionStatus = "failed"

	// StatusUnsupported means the file type or size cannot be processed.
	StatusUnsupported ExtractionStatus = "unsupported"
)

// IsValid returns true if the status is recognised.
func (s ExtractionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusExtracted, StatusFailed, StatusUnsupported:
		return true
	default:
		return false
	}
}

// MediaType is the detected content type of a file.
// Detection inspects file bytes, not just the extension.
type MediaType string

// Supported media types.
const (
	MediaText     MediaType = "text"
	MediaMarkdown MediaType = "markdown"
	MediaPDF      MediaType = "pdf"
	MediaImage    MediaType = "image"
	MediaUnknown  MediaType = "unknown"
)

// Document represents one ingested file.
// The absolute path is the identity key: re-ingesting the same path
// updates the existing document rather than duplicating it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Path is the absolute filesystem path (identity key).
	Path string

	// ContentHash is the hex SHA-256 of the file bytes, used for
	// change detection and idempotent re-ingestion.
	ContentHash string

	// MediaType is the detected content type.
	MediaType MediaType

	// Size is the file size in bytes.
	Size int64

	// ModifiedAt is the file's modification timestamp at ingestion time.
	ModifiedAt time.Time

	// Status is the extraction status.
	Status ExtractionStatus

	// FailureReason records the cause when Status is failed or unsupported.
	FailureReason string

	// Metadata contains extractor-provided key-value pairs
	// (page count, OCR confidence, author, etc).
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk represents a bounded slice of a document's extracted text.
// It is the unit of embedding and retrieval. Chunks of a document are
// replaced atomically as a set on re-ingestion; identifiers are never
// reused across replacements.
type Chunk struct {
	// ID is the unique identifier for the chunk. The same ID keys the
	// chunk's vector in the vector index.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// StartOffset and EndOffset are byte offsets into the extracted text.
	StartOffset int
	EndOffset   int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
