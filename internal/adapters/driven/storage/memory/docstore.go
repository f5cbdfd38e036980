// Package memory provides in-memory implementations of the storage
// ports, used in tests and wherever persistence is not needed.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document // keyed by ID
	byPath    map[string]string          // path -> ID
	chunks    map[string][]domain.Chunk  // keyed by document ID
	meta      map[string]string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		byPath:    make(map[string]string),
		chunks:    make(map[string][]domain.Chunk),
		meta:      make(map[string]string),
	}
}

// UpsertDocument stores or updates a document keyed by its path.
func (s *DocumentStore) UpsertDocument(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.Path == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *doc
	if existingID, ok := s.byPath[doc.Path]; ok {
		// Path already known: keep the original identity.
		existing := s.documents[existingID]
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.documents[stored.ID] = stored
	s.byPath[stored.Path] = stored.ID
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByPath retrieves a document by its absolute path.
func (s *DocumentStore) GetDocumentByPath(_ context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// SetDocumentStatus updates a document's status and failure reason.
func (s *DocumentStore) SetDocumentStatus(_ context.Context, id string, status domain.ExtractionStatus, reason string) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.FailureReason = reason
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return nil
}

// UpdateDocumentPath moves a document to a new path.
func (s *DocumentStore) UpdateDocumentPath(_ context.Context, id, newPath string) error {
	if newPath == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byPath, doc.Path)
	doc.Path = newPath
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	s.byPath[newPath] = id
	return nil
}

// ListDocuments returns documents matching the filters, ordered by path.
func (s *DocumentStore) ListDocuments(_ context.Context, filters domain.SearchFilters) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if filters.Matches(&doc) {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// DeleteDocument removes a document row.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		delete(s.byPath, doc.Path)
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// InsertChunks stores chunks, appending to any existing set.
func (s *DocumentStore) InsertChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], chunk)
	}
	return nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteChunks removes all chunks for a document and returns their IDs.
func (s *DocumentStore) DeleteChunks(_ context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.chunks[documentID]
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	delete(s.chunks, documentID)
	return ids, nil
}

// DeleteChunksByID removes specific chunk rows.
func (s *DocumentStore) DeleteChunksByID(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for docID, chunks := range s.chunks {
		kept := chunks[:0]
		for _, chunk := range chunks {
			if !drop[chunk.ID] {
				kept = append(kept, chunk)
			}
		}
		s.chunks[docID] = kept
	}
	return nil
}

// AllChunkIDs returns every chunk ID in the store.
func (s *DocumentStore) AllChunkIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			ids = append(ids, chunk.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetMeta retrieves a store-level metadata value.
func (s *DocumentStore) GetMeta(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.meta[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return value, nil
}

// SetMeta stores a store-level metadata value.
func (s *DocumentStore) SetMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}
