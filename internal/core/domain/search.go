package domain

import "time"

// SearchFilters narrows search results by document metadata.
// All filters are conjunctive: a result must satisfy every one set.
type SearchFilters struct {
	// MediaTypes restricts results to the given detected types.
	// Empty means all types.
	MediaTypes []MediaType

	// PathPrefix restricts results to documents under this path.
	PathPrefix string

	// ModifiedAfter excludes documents modified at or before this time.
	ModifiedAfter time.Time

	// ModifiedBefore excludes documents modified at or after this time.
	ModifiedBefore time.Time
}

// Matches reports whether a document satisfies all filters.
func (f SearchFilters) Matches(doc *Document) bool {
	if len(f.MediaTypes) > 0 {
		found := false
		for _, mt := range f.MediaTypes {
			if doc.MediaType == mt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PathPrefix != "" && !hasPathPrefix(doc.Path, f.PathPrefix) {
		return false
	}
	if !f.ModifiedAfter.IsZero() && !doc.ModifiedAt.After(f.ModifiedAfter) {
		return false
	}
	if !f.ModifiedBefore.IsZero() && !doc.ModifiedAt.Before(f.ModifiedBefore) {
		return false
	}
	return true
}

// hasPathPrefix matches whole path segments so that /a/b does not
// match /a/bc.
func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return prefix[len(prefix)-1] == '/' || path[len(prefix)] == '/'
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of documents returned (default 10).
	Limit int

	// Filters narrows results by document metadata.
	Filters SearchFilters
}

// SearchResult is one ranked document. Multiple matching chunks from
// the same document collapse into a single result scored by the best
// chunk.
type SearchResult struct {
	// Document is the matched document.
	Document Document

	// Chunk is the best-matching chunk.
	Chunk Chunk

	// Score is the cosine similarity of the best chunk (0-1).
	Score float64

	// Snippet is a bounded excerpt of the best chunk's content.
	Snippet string
}
