package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
	"github.com/neonarc/neonarc/internal/logger"
)

var _ driving.Searcher = (*SearchService)(nil)

const (
	// defaultSearchLimit caps results when the caller sets no limit.
	defaultSearchLimit = 10

	// overFetchFactor inflates the vector search so that filtering and
	// per-document deduplication still leave enough results.
	overFetchFactor = 8

	// snippetLength bounds the excerpt taken from the best chunk.
	snippetLength = 200
)

// SearchService answers similarity queries over the archive. Only
// documents in the extracted state are visible to reads: a document
// mid-ingestion or failed never surfaces in results.
type SearchService struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
}

// NewSearchService creates a search service.
func NewSearchService(docStore driven.DocumentStore, vectorIndex driven.VectorIndex, embedder driven.EmbeddingService) *SearchService {
	return &SearchService{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
	}
}

// Search embeds the query and returns ranked, deduplicated documents.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}

	if err := ensureModel(ctx, s.docStore, s.embedder, false); err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := s.vectorIndex.Search(ctx, embedding, opts.Limit*overFetchFactor)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	logger.Debug("query matched %d chunks before filtering", len(hits))

	results, err := s.collect(ctx, hits, opts.Filters, nil)
	if err != nil {
		return nil, err
	}
	return rank(results, opts.Limit), nil
}

// Similar ranks documents by similarity to the document at path, using
// its own chunk embeddings as the query set. The document itself is
// excluded.
func (s *SearchService) Similar(ctx context.Context, path string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	doc, err := s.docStore.GetDocumentByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusExtracted {
		return nil, fmt.Errorf("%w: %s is not extracted", domain.ErrNotFound, path)
	}

	chunks, err := s.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	// Query with every chunk of the source document; each target keeps
	// the best similarity seen across the query set.
	best := make(map[string]float64)
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			continue
		}
		hits, err := s.vectorIndex.Search(ctx, chunks[i].Embedding, limit*overFetchFactor)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		for _, hit := range hits {
			if prev, ok := best[hit.ChunkID]; !ok || hit.Similarity > prev {
				best[hit.ChunkID] = hit.Similarity
			}
		}
	}

	merged := make([]driven.VectorHit, 0, len(best))
	for id, sim := range best {
		merged = append(merged, driven.VectorHit{ChunkID: id, Similarity: sim})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		return merged[i].ChunkID < merged[j].ChunkID
	})

	exclude := map[string]bool{doc.ID: true}
	results, err := s.collect(ctx, merged, domain.SearchFilters{}, exclude)
	if err != nil {
		return nil, err
	}
	return rank(results, limit), nil
}

// Context returns the chunks surrounding chunkID within its document.
func (s *SearchService) Context(ctx context.Context, chunkID string, radius int) ([]domain.Chunk, error) {
	if radius < 0 {
		return nil, domain.ErrInvalidInput
	}

	chunk, err := s.docStore.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.docStore.GetChunks(ctx, chunk.DocumentID)
	if err != nil {
		return nil, err
	}

	lo := chunk.Position - radius
	hi := chunk.Position + radius
	var window []domain.Chunk
	for i := range siblings {
		if siblings[i].Position >= lo && siblings[i].Position <= hi {
			window = append(window, siblings[i])
		}
	}
	return window, nil
}

// collect hydrates vector hits into per-document results, applying
// filters and keeping each document's best-scoring chunk. Hits whose
// chunk or document rows are missing are skipped: reconciliation owns
// that repair, search stays read-only.
func (s *SearchService) collect(ctx context.Context, hits []driven.VectorHit, filters domain.SearchFilters, exclude map[string]bool) ([]domain.SearchResult, error) {
	byDoc := make(map[string]*domain.SearchResult)
	docs := make(map[string]*domain.Document)

	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = s.docStore.GetDocument(ctx, chunk.DocumentID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			docs[chunk.DocumentID] = doc
		}

		if doc.Status != domain.StatusExtracted {
			continue
		}
		if exclude[doc.ID] {
			continue
		}
		if !filters.Matches(doc) {
			continue
		}

		if prev, ok := byDoc[doc.ID]; ok && prev.Score >= hit.Similarity {
			continue
		}
		byDoc[doc.ID] = &domain.SearchResult{
			Document: *doc,
			Chunk:    *chunk,
			Score:    hit.Similarity,
			Snippet:  snippet(chunk.Content, snippetLength),
		}
	}

	results := make([]domain.SearchResult, 0, len(byDoc))
	for _, r := range byDoc {
		results = append(results, *r)
	}
	return results, nil
}

// rank orders results by score, then recency, then path, and truncates
// to limit. The full ordering makes result order reproducible even
// under score ties.
func rank(results []domain.SearchResult, limit int) []domain.SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Document.ModifiedAt.Equal(results[j].Document.ModifiedAt) {
			return results[i].Document.ModifiedAt.After(results[j].Document.ModifiedAt)
		}
		return results[i].Document.Path < results[j].Document.Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// snippet returns a bounded excerpt cut at a word boundary.
func snippet(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	cut := content[:maxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}
