package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

// newTestDocument builds a document with sensible defaults.
func newTestDocument(path string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Document{
		ID:          uuid.NewString(),
		Path:        path,
		ContentHash: "deadbeef",
		MediaType:   domain.MediaText,
		Size:        42,
		ModifiedAt:  now,
		Status:      domain.StatusPending,
		Metadata:    map[string]any{},
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "metadata.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)

	assert.NoError(t, store.db.Ping())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var version int
	err = store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

// ==================== Document Tests ====================

func TestUpsertDocument_InsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/report.txt")
	doc.Metadata = map[string]any{"title": "Quarterly Report"}
	require.NoError(t, store.UpsertDocument(ctx, doc))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "/docs/report.txt", got.Path)
	assert.Equal(t, "deadbeef", got.ContentHash)
	assert.Equal(t, domain.MediaText, got.MediaType)
	assert.Equal(t, int64(42), got.Size)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "Quarterly Report", got.Metadata["title"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertDocument_SamePathKeepsIdentity(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, first))

	// Re-ingesting the same path with a new candidate ID must update the
	// existing row, not create a second one.
	second := newTestDocument("/docs/a.txt")
	second.ContentHash = "cafef00d"
	second.Status = domain.StatusExtracted
	require.NoError(t, store.UpsertDocument(ctx, second))

	got, err := store.GetDocumentByPath(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "original ID survives the upsert")
	assert.Equal(t, "cafef00d", got.ContentHash)
	assert.Equal(t, domain.StatusExtracted, got.Status)

	docs, err := store.ListDocuments(ctx, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestUpsertDocument_InvalidInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.UpsertDocument(ctx, &domain.Document{Path: "/x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.UpsertDocument(ctx, &domain.Document{ID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetDocumentByPath(ctx, "/nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetDocumentStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))

	err := store.SetDocumentStatus(ctx, doc.ID, domain.StatusFailed, "extractor crashed")
	require.NoError(t, err)

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "extractor crashed", got.FailureReason)
}

func TestSetDocumentStatus_Errors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.SetDocumentStatus(ctx, "missing", domain.StatusExtracted, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	err = store.SetDocumentStatus(ctx, doc.ID, "bogus", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateDocumentPath(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/old.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))

	require.NoError(t, store.UpdateDocumentPath(ctx, doc.ID, "/docs/new.txt"))

	got, err := store.GetDocumentByPath(ctx, "/docs/new.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = store.GetDocumentByPath(ctx, "/docs/old.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.UpdateDocumentPath(ctx, "missing", "/elsewhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocuments_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	old := newTestDocument("/notes/old.md")
	old.MediaType = domain.MediaMarkdown
	old.ModifiedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertDocument(ctx, old))

	recent := newTestDocument("/notes/recent.pdf")
	recent.MediaType = domain.MediaPDF
	recent.ModifiedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertDocument(ctx, recent))

	other := newTestDocument("/notesarchive/other.txt")
	require.NoError(t, store.UpsertDocument(ctx, other))

	t.Run("no filters returns everything ordered by path", func(t *testing.T) {
		docs, err := store.ListDocuments(ctx, domain.SearchFilters{})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "/notes/old.md", docs[0].Path)
		assert.Equal(t, "/notes/recent.pdf", docs[1].Path)
		assert.Equal(t, "/notesarchive/other.txt", docs[2].Path)
	})

	t.Run("media type filter", func(t *testing.T) {
		docs, err := store.ListDocuments(ctx, domain.SearchFilters{
			MediaTypes: []domain.MediaType{domain.MediaPDF},
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "/notes/recent.pdf", docs[0].Path)
	})

	t.Run("path prefix respects segment boundaries", func(t *testing.T) {
		docs, err := store.ListDocuments(ctx, domain.SearchFilters{PathPrefix: "/notes"})
		require.NoError(t, err)
		require.Len(t, docs, 2, "prefix /notes must not match /notesarchive")
	})

	t.Run("modified after", func(t *testing.T) {
		cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		docs, err := store.ListDocuments(ctx, domain.SearchFilters{ModifiedAfter: cutoff})
		require.NoError(t, err)
		names := make([]string, 0, len(docs))
		for _, d := range docs {
			names = append(names, d.Path)
		}
		assert.Contains(t, names, "/notes/recent.pdf")
		assert.NotContains(t, names, "/notes/old.md")
	})
}

func TestDeleteDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err := store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing document is not an error.
	assert.NoError(t, store.DeleteDocument(ctx, "missing"))
}

// ==================== Chunk Tests ====================

func insertTestChunks(t *testing.T, store *Store, docID string, n int) []domain.Chunk {
	t.Helper()
	ctx := context.Background()

	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:          uuid.NewString(),
			DocumentID:  docID,
			Content:     "chunk content",
			Position:    i,
			StartOffset: i * 100,
			EndOffset:   i*100 + 13,
			Embedding:   []float32{float32(i), 0.5, -1.25},
		}
	}
	require.NoError(t, store.InsertChunks(ctx, chunks))
	return chunks
}

func TestInsertAndGetChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	chunks := insertTestChunks(t, store, doc.ID, 3)

	got, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, chunks[i].ID, c.ID)
		assert.Equal(t, chunks[i].Embedding, c.Embedding, "embedding round-trips through the blob")
		assert.Equal(t, chunks[i].StartOffset, c.StartOffset)
		assert.Equal(t, chunks[i].EndOffset, c.EndOffset)
	}

	single, err := store.GetChunk(ctx, chunks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, chunks[1].ID, single.ID)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertChunks_Empty(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.InsertChunks(context.Background(), nil))
}

func TestDeleteChunks_ReturnsRemovedIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	chunks := insertTestChunks(t, store, doc.ID, 3)

	ids, err := store.DeleteChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	for _, c := range chunks {
		assert.Contains(t, ids, c.ID)
	}

	remaining, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// A document with no chunks yields no IDs and no error.
	ids, err = store.DeleteChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteChunksByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	chunks := insertTestChunks(t, store, doc.ID, 3)

	require.NoError(t, store.DeleteChunksByID(ctx, []string{chunks[0].ID, chunks[2].ID}))

	got, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chunks[1].ID, got[0].ID)

	assert.NoError(t, store.DeleteChunksByID(ctx, nil))
}

func TestAllChunkIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	docA := newTestDocument("/docs/a.txt")
	docB := newTestDocument("/docs/b.txt")
	require.NoError(t, store.UpsertDocument(ctx, docA))
	require.NoError(t, store.UpsertDocument(ctx, docB))
	a := insertTestChunks(t, store, docA.ID, 2)
	b := insertTestChunks(t, store, docB.ID, 1)

	ids, err := store.AllChunkIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, a[0].ID)
	assert.Contains(t, ids, b[0].ID)
}

func TestDeleteDocument_CascadesToChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("/docs/a.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	insertTestChunks(t, store, doc.ID, 2)

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	ids, err := store.AllChunkIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// ==================== Meta Tests ====================

func TestMeta_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetMeta(ctx, driven.MetaEmbeddingModel)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SetMeta(ctx, driven.MetaEmbeddingModel, "nomic-embed-text"))
	got, err := store.GetMeta(ctx, driven.MetaEmbeddingModel)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", got)

	// Overwrite replaces the value.
	require.NoError(t, store.SetMeta(ctx, driven.MetaEmbeddingModel, "all-minilm"))
	got, err = store.GetMeta(ctx, driven.MetaEmbeddingModel)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", got)
}

// ==================== Helper Tests ====================

func TestFloat32BlobRoundTrip(t *testing.T) {
	cases := [][]float32{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.75},
		{0.1, 0.2, 0.3, 0.4},
	}

	for _, c := range cases {
		got := bytesToFloat32Slice(float32SliceToBytes(c))
		if len(c) == 0 {
			assert.Nil(t, got)
			continue
		}
		assert.Equal(t, c, got)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)

	doc := newTestDocument("/docs/persist.txt")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	insertTestChunks(t, store, doc.ID, 2)
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetDocumentByPath(ctx, "/docs/persist.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	_ = os.RemoveAll(tempDir)
}
