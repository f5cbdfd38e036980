package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
)

// ingestCorpus writes and ingests a small fixed corpus, returning the
// path of each file by name.
func ingestCorpus(t *testing.T, h *testHarness, files map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(files))
	for name, content := range files {
		paths[name] = writeFile(t, dir, name, content)
	}
	result, err := h.ingest.Ingest(context.Background(), []string{dir}, driving.IngestOptions{Recursive: true})
	require.NoError(t, err)
	require.Equal(t, len(files), result.Ingested)
	return paths
}

func TestSearch_RanksRelatedContentFirst(t *testing.T) {
	h := newTestHarness(t)
	paths := ingestCorpus(t, h, map[string]string{
		"taxes.txt":  "income tax return filing deadline documents",
		"recipe.txt": "banana smoothie recipe with oat milk",
	})

	results, err := h.search.Search(context.Background(), "tax filing documents", domain.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, paths["taxes.txt"], results[0].Document.Path)
	assert.Greater(t, results[0].Score, 0.0)
	assert.NotEmpty(t, results[0].Snippet)
}

func TestSearch_Deterministic(t *testing.T) {
	h := newTestHarness(t)
	ingestCorpus(t, h, map[string]string{
		"a.txt": "shared words appear in both files here",
		"b.txt": "shared words appear in both files too",
		"c.txt": "completely different topic about gardening",
	})

	first, err := h.search.Search(context.Background(), "shared words", domain.SearchOptions{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := h.search.Search(context.Background(), "shared words", domain.SearchOptions{})
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Document.Path, again[j].Document.Path)
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	h := newTestHarness(t)
	results, err := h.search.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyArchive(t *testing.T) {
	h := newTestHarness(t)
	results, err := h.search.Search(context.Background(), "anything", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_LimitApplies(t *testing.T) {
	h := newTestHarness(t)
	ingestCorpus(t, h, map[string]string{
		"a.txt": "common topic one",
		"b.txt": "common topic two",
		"c.txt": "common topic three",
	})

	results, err := h.search.Search(context.Background(), "common topic", domain.SearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_DeduplicatesByDocument(t *testing.T) {
	h := newTestHarness(t)

	// Multi-chunk document: every chunk matches, one result comes back.
	splitter := sentenceSplitter{}
	h.ingest = NewIngestService(h.coordinator, h.docStore, h.registry, splitter, h.embedder, 1, domain.DefaultMaxFileSize)
	paths := ingestCorpus(t, h, map[string]string{
		"multi.txt": "archive search topic. archive search topic again. archive search topic once more.",
	})

	results, err := h.search.Search(context.Background(), "archive search topic", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, paths["multi.txt"], results[0].Document.Path)
}

func TestSearch_FilterByMediaType(t *testing.T) {
	h := newTestHarness(t)
	ingestCorpus(t, h, map[string]string{
		"a.txt": "filter target content",
	})

	opts := domain.SearchOptions{Filters: domain.SearchFilters{MediaTypes: []domain.MediaType{domain.MediaPDF}}}
	results, err := h.search.Search(context.Background(), "filter target", opts)
	require.NoError(t, err)
	assert.Empty(t, results)

	opts.Filters.MediaTypes = []domain.MediaType{domain.MediaText}
	results, err = h.search.Search(context.Background(), "filter target", opts)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_FilterByPathPrefix(t *testing.T) {
	h := newTestHarness(t)
	dir := t.TempDir()
	writeFile(t, dir, "inside/a.txt", "prefix filter content")
	writeFile(t, dir, "outside/b.txt", "prefix filter content")
	_, err := h.ingest.Ingest(context.Background(), []string{dir}, driving.IngestOptions{Recursive: true})
	require.NoError(t, err)

	opts := domain.SearchOptions{Filters: domain.SearchFilters{PathPrefix: dir + "/inside"}}
	results, err := h.search.Search(context.Background(), "prefix filter", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Document.Path, "/inside/")
}

func TestSearch_FilterByModifiedTime(t *testing.T) {
	h := newTestHarness(t)
	ingestCorpus(t, h, map[string]string{"a.txt": "time filter content"})

	future := time.Now().Add(24 * time.Hour)
	opts := domain.SearchOptions{Filters: domain.SearchFilters{ModifiedAfter: future}}
	results, err := h.search.Search(context.Background(), "time filter", opts)
	require.NoError(t, err)
	assert.Empty(t, results)

	past := time.Now().Add(-24 * time.Hour)
	opts.Filters = domain.SearchFilters{ModifiedAfter: past}
	results, err = h.search.Search(context.Background(), "time filter", opts)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_ModelMismatch(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	require.NoError(t, h.docStore.SetMeta(ctx, driven.MetaEmbeddingModel, "other-model"))

	_, err := h.search.Search(ctx, "anything", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestSimilar_ExcludesSelf(t *testing.T) {
	h := newTestHarness(t)
	paths := ingestCorpus(t, h, map[string]string{
		"a.txt": "invoice payment records for the year",
		"b.txt": "invoice payment records for last year",
		"c.txt": "hiking trail maps and elevation notes",
	})

	results, err := h.search.Similar(context.Background(), paths["a.txt"], 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotEqual(t, paths["a.txt"], r.Document.Path)
	}
	assert.Equal(t, paths["b.txt"], results[0].Document.Path)
}

func TestSimilar_UnknownPath(t *testing.T) {
	h := newTestHarness(t)
	_, err := h.search.Similar(context.Background(), "/no/such/doc.txt", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContext_ReturnsWindow(t *testing.T) {
	h := newTestHarness(t)
	h.ingest = NewIngestService(h.coordinator, h.docStore, h.registry, sentenceSplitter{}, h.embedder, 1, domain.DefaultMaxFileSize)
	paths := ingestCorpus(t, h, map[string]string{
		"multi.txt": "one. two. three. four. five.",
	})
	ctx := context.Background()

	doc, err := h.docStore.GetDocumentByPath(ctx, paths["multi.txt"])
	require.NoError(t, err)
	chunks, err := h.docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	window, err := h.search.Context(ctx, chunks[2].ID, 1)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, 1, window[0].Position)
	assert.Equal(t, 2, window[1].Position)
	assert.Equal(t, 3, window[2].Position)

	// Window clamps at document boundaries.
	window, err = h.search.Context(ctx, chunks[0].ID, 2)
	require.NoError(t, err)
	assert.Len(t, window, 3)
}

func TestContext_UnknownChunk(t *testing.T) {
	h := newTestHarness(t)
	_, err := h.search.Context(context.Background(), "missing-chunk", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnippet_CutsAtWordBoundary(t *testing.T) {
	long := "alpha beta gamma delta epsilon zeta eta theta"
	got := snippet(long, 20)
	assert.Equal(t, "alpha beta gamma...", got)

	short := "short text"
	assert.Equal(t, short, snippet(short, 20))
}
