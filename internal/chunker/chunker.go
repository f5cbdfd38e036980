// Package chunker splits extracted text into bounded chunks.
//
// The policy is deterministic, which ranking reproducibility depends
// on: chunks are at most the configured size in bytes, breaks prefer
// paragraph boundaries, then sentence boundaries, in the latter half
// of the window; only hard splits carry the configured overlap into
// the next chunk. Identical text and configuration always produce the
// same chunk boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// DefaultChunkSize is the default maximum chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultOverlap is the default overlap carried between hard-split chunks.
const DefaultOverlap = 200

// sentenceEnders mark preferred break points within a paragraph.
var sentenceEnders = []string{". ", ".\n", "? ", "?\n", "! ", "!\n"}

// Chunker splits document text into chunks.
type Chunker struct {
	size    int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between hard-split chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave forward progress on every hard split.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split chunks the text for the given document. Each chunk gets a
// fresh identifier, its ordinal position, and byte offsets into text.
func (c *Chunker) Split(documentID, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(text)/c.size+1)
	start := 0
	position := 0

	for start < len(text) {
		// Skip leading whitespace so offsets point at content.
		for start < len(text) && isSpace(text[start]) {
			start++
		}
		if start >= len(text) {
			break
		}

		end, hard := c.breakAt(text, start)
		content := strings.TrimRight(text[start:end], " \t\n")
		if content != "" {
			chunks = append(chunks, domain.Chunk{
				ID:          uuid.New().String(),
				DocumentID:  documentID,
				Content:     content,
				Position:    position,
				StartOffset: start,
				EndOffset:   start + len(content),
				Metadata:    make(map[string]any),
			})
			position++
		}

		next := end
		if hard {
			next = end - c.overlap
			for next > start && !utf8.RuneStart(text[next]) {
				next--
			}
		}
		if next <= start {
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}

	return chunks
}

// breakAt picks the end of the chunk starting at start. It returns the
// break offset and whether it is a hard split (no boundary found).
func (c *Chunker) breakAt(text string, start int) (end int, hard bool) {
	if start+c.size >= len(text) {
		return len(text), false
	}

	window := text[start : start+c.size]
	half := c.size / 2

	// Prefer a paragraph boundary in the latter half of the window.
	if idx := strings.LastIndex(window, "\n\n"); idx > half {
		return start + idx, false
	}

	// Then a sentence boundary.
	best := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(window, ender); idx > half && idx+1 > best {
			best = idx + 1 // keep the terminator with the chunk
		}
	}
	if best > 0 {
		return start + best, false
	}

	// Hard split at the size limit; overlap carries context forward.
	// Back off to a rune start so the cut never leaves a partial
	// UTF-8 sequence at either side of the break.
	end = start + c.size
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		end = start + c.size
	}
	return end, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
