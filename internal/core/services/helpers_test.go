package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/adapters/driven/embedding/static"
	"github.com/neonarc/neonarc/internal/adapters/driven/storage/memory"
	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// fakeRegistry treats any .txt file as plain text and everything else
// as unknown. Extraction calls are counted to assert the idempotence
// short-circuit.
type fakeRegistry struct {
	mu       sync.Mutex
	extracts int
}

func (r *fakeRegistry) Detect(path string, head []byte) domain.MediaType {
	if strings.HasSuffix(path, ".txt") {
		return domain.MediaText
	}
	return domain.MediaUnknown
}

func (r *fakeRegistry) Extract(_ context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	r.mu.Lock()
	r.extracts++
	r.mu.Unlock()
	if raw.MediaType != domain.MediaText {
		return nil, domain.ErrUnsupportedType
	}
	return &driven.ExtractResult{Text: string(raw.Content)}, nil
}

func (r *fakeRegistry) extractCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extracts
}

// wholeSplitter emits the full text as a single chunk with a fresh ID.
type wholeSplitter struct{}

func (wholeSplitter) Split(documentID, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []domain.Chunk{{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		Content:     text,
		Position:    0,
		StartOffset: 0,
		EndOffset:   len(text),
	}}
}

// sentenceSplitter emits one chunk per period-terminated sentence,
// for tests that need multi-chunk documents.
type sentenceSplitter struct{}

func (sentenceSplitter) Split(documentID, text string) []domain.Chunk {
	var chunks []domain.Chunk
	offset := 0
	for _, part := range strings.SplitAfter(text, ".") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			offset += len(part)
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.NewString(),
			DocumentID:  documentID,
			Content:     trimmed,
			Position:    len(chunks),
			StartOffset: offset,
			EndOffset:   offset + len(part),
		})
		offset += len(part)
	}
	return chunks
}

// spyEmbedder counts EmbedBatch calls around a real static embedder.
type spyEmbedder struct {
	driven.EmbeddingService

	mu      sync.Mutex
	batches int
}

func newSpyEmbedder() *spyEmbedder {
	return &spyEmbedder{EmbeddingService: static.NewEmbeddingService(64)}
}

func (e *spyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

func (e *spyEmbedder) batchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

// failingVectorIndex wraps the memory index and fails Add after
// allowAdds successful inserts, to simulate a partial vector write.
type failingVectorIndex struct {
	*memory.VectorIndex

	mu        sync.Mutex
	allowAdds int
}

var errIndexDown = errors.New("index unavailable")

func (v *failingVectorIndex) Add(ctx context.Context, chunkID string, embedding []float32) error {
	v.mu.Lock()
	if v.allowAdds <= 0 {
		v.mu.Unlock()
		return errIndexDown
	}
	v.allowAdds--
	v.mu.Unlock()
	return v.VectorIndex.Add(ctx, chunkID, embedding)
}

// testHarness bundles the stores and services most tests need.
type testHarness struct {
	docStore    *memory.DocumentStore
	vectorIndex *memory.VectorIndex
	registry    *fakeRegistry
	embedder    *spyEmbedder
	coordinator *Coordinator
	ingest      *IngestService
	search      *SearchService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	docStore := memory.NewDocumentStore()
	vectorIndex := memory.NewVectorIndex()
	registry := &fakeRegistry{}
	embedder := newSpyEmbedder()
	coordinator := NewCoordinator(docStore, vectorIndex)
	return &testHarness{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		registry:    registry,
		embedder:    embedder,
		coordinator: coordinator,
		ingest:      NewIngestService(coordinator, docStore, registry, wholeSplitter{}, embedder, 2, domain.DefaultMaxFileSize),
		search:      NewSearchService(docStore, vectorIndex, embedder),
	}
}

// writeFile creates a file under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
