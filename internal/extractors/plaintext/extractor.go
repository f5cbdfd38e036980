// Package plaintext extracts text files as-is.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text files.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaText}
}

// Extract decodes the file bytes as UTF-8. A leading byte order mark
// is stripped; invalid sequences are replaced with U+FFFD and flagged
// in metadata rather than failing the file.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := raw.Content
	meta := map[string]any{"encoding": "utf-8"}

	switch {
	case bytes.HasPrefix(content, []byte{0xef, 0xbb, 0xbf}):
		content = content[3:]
		meta["bom"] = true
	case bytes.HasPrefix(content, []byte{0xff, 0xfe}), bytes.HasPrefix(content, []byte{0xfe, 0xff}):
		// UTF-16 input is rare locally; decode what is valid and flag it.
		meta["encoding"] = "utf-16"
	}

	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
		meta["invalid_utf8_replaced"] = true
	}

	if strings.TrimSpace(text) == "" {
		meta["empty"] = true
		return &driven.ExtractResult{Text: "", Metadata: meta}, nil
	}

	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}
