package driven

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// Extractor turns raw file bytes into text. Each extractor handles
// specific media types; a registry dispatches by detected type.
// Extractors are pure functions of bytes plus configuration: they
// touch no stores and hold no state between calls.
type Extractor interface {
	// MediaTypes returns the detected types this extractor handles.
	MediaTypes() []domain.MediaType

	// Extract returns the text content and extraction metadata.
	// Zero extractable text is returned as an empty Text with metadata,
	// not as an error.
	Extract(ctx context.Context, raw *domain.RawFile) (*ExtractResult, error)
}

// ExtractResult contains the output of extraction.
type ExtractResult struct {
	// Text is the full extracted text before chunking.
	Text string

	// Metadata contains extractor-specific key-value pairs
	// (page count, OCR confidence, detected encoding, etc).
	Metadata map[string]any
}

// ExtractorRegistry selects an extractor by detected media type.
type ExtractorRegistry interface {
	// Detect inspects file content to determine its media type.
	Detect(path string, head []byte) domain.MediaType

	// Extract dispatches to the extractor registered for the file's
	// media type. Returns domain.ErrUnsupportedType when none matches.
	Extract(ctx context.Context, raw *domain.RawFile) (*ExtractResult, error)
}
