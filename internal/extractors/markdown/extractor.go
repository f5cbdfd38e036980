// Package markdown extracts markdown files as plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles markdown files, stripping formatting so that
// chunking and embedding see prose rather than syntax.
type Extractor struct{}

// New creates a new markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaMarkdown}
}

// Extract strips markdown formatting and returns the plain text.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	meta := map[string]any{"format": "markdown"}

	if title := firstHeading(content); title != "" {
		meta["title"] = title
	}

	text := stripMarkdown(content)
	if strings.TrimSpace(text) == "" {
		meta["empty"] = true
		text = ""
	}

	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}

// firstHeading returns the first H1 heading, if any.
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

var (
	codeBlockRe  = regexp.MustCompile("(?s)```[^`]*```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s*`)
	hrRe         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
)

// stripMarkdown removes common markdown formatting. A simplified
// implementation that handles the common cases.
func stripMarkdown(content string) string {
	content = codeBlockRe.ReplaceAllString(content, "")
	content = inlineCodeRe.ReplaceAllString(content, "")
	content = imageRe.ReplaceAllString(content, "")
	content = linkRe.ReplaceAllString(content, "$1")
	content = headingRe.ReplaceAllString(content, "")
	content = blockquoteRe.ReplaceAllString(content, "")
	content = hrRe.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	return strings.TrimSpace(content)
}
