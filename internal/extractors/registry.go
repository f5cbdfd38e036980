package extractors

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// sniffLen is how many leading bytes Detect examines.
const sniffLen = 512

// Registry maps detected media types to extractors.
type Registry struct {
	byType map[domain.MediaType]driven.Extractor
}

// NewRegistry creates a registry dispatching to the given extractors.
// Later extractors win when two claim the same media type.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byType: make(map[domain.MediaType]driven.Extractor)}
	for _, e := range extractors {
		for _, mt := range e.MediaTypes() {
			r.byType[mt] = e
		}
	}
	return r
}

// Detect inspects a file's leading bytes to determine its media type.
// The extension only disambiguates within the text family; binary
// formats are recognised by magic bytes regardless of extension.
func (r *Registry) Detect(path string, head []byte) domain.MediaType {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return domain.MediaPDF
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")),
		bytes.HasPrefix(head, []byte("\xff\xd8\xff")),
		bytes.HasPrefix(head, []byte("II*\x00")),
		bytes.HasPrefix(head, []byte("MM\x00*")),
		bytes.HasPrefix(head, []byte("GIF87a")),
		bytes.HasPrefix(head, []byte("GIF89a")),
		bytes.HasPrefix(head, []byte("BM")):
		return domain.MediaImage
	}

	if looksLikeText(head) {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
			return domain.MediaMarkdown
		default:
			return domain.MediaText
		}
	}

	return domain.MediaUnknown
}

// Extract dispatches to the extractor registered for the raw file's
// media type.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	extractor, ok := r.byType[raw.MediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, raw.MediaType)
	}

	return extractor.Extract(ctx, raw)
}

// looksLikeText reports whether head plausibly contains text: no NUL
// bytes and predominantly valid UTF-8.
func looksLikeText(head []byte) bool {
	if len(head) == 0 {
		return true // empty files are treated as empty text
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}

	// A truncated multi-byte rune at the sniff boundary is not invalid.
	for len(head) > 0 && !utf8.Valid(head) {
		r, size := utf8.DecodeLastRune(head)
		if r != utf8.RuneError || size != 1 {
			break
		}
		head = head[:len(head)-1]
	}

	invalid := 0
	for i := 0; i < len(head); {
		r, size := utf8.DecodeRune(head[i:])
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		i += size
	}
	return invalid*20 < len(head) // under 5% junk
}
