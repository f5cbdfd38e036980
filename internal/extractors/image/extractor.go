// Package image extracts text from raster images via the OCR backend.
package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles raster images (PNG, JPEG, TIFF, GIF, BMP) by
// running them through OCR.
type Extractor struct {
	ocr       driven.OCRBackend
	threshold float64
}

// New creates an image extractor. Results whose average confidence
// falls below threshold are still returned but flagged in metadata.
func New(ocr driven.OCRBackend, threshold float64) *Extractor {
	return &Extractor{ocr: ocr, threshold: threshold}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaImage}
}

// Extract runs OCR over the image bytes. Low-confidence results are
// flagged, never silently dropped.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if e.ocr == nil || !e.ocr.Available(ctx) {
		return nil, fmt.Errorf("%w: cannot extract image text", domain.ErrOCRUnavailable)
	}

	result, err := e.ocr.Recognise(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	meta := map[string]any{
		"ocr_confidence": result.Confidence,
		"ocr_language":   result.Language,
	}
	if result.Confidence < e.threshold {
		meta["ocr_low_confidence"] = true
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		meta["empty"] = true
	}
	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}
