package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/neonarc/neonarc/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Store is a SQLite-backed metadata store for documents and chunks.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.DocumentStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.neonarc/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".neonarc", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// UpsertDocument stores or updates a document keyed by its path. When a
// row for the path already exists, its ID and created_at are preserved.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.Path == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, path, content_hash, media_type, size, modified_at, status, failure_reason, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			media_type = excluded.media_type,
			size = excluded.size,
			modified_at = excluded.modified_at,
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Path, doc.ContentHash, string(doc.MediaType), doc.Size,
		doc.ModifiedAt, string(doc.Status), doc.FailureReason,
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content_hash, media_type, size, modified_at, status, failure_reason, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocumentRow(row)
}

// GetDocumentByPath retrieves a document by its absolute path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content_hash, media_type, size, modified_at, status, failure_reason, metadata, created_at, updated_at
		FROM documents WHERE path = ?
	`, path)

	return scanDocumentRow(row)
}

// SetDocumentStatus updates a document's extraction status and failure reason.
func (s *Store) SetDocumentStatus(ctx context.Context, id string, status domain.ExtractionStatus, reason string) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ?
	`, string(status), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateDocumentPath moves a document row to a new path. Chunks stay in
// place since they reference the document by ID.
func (s *Store) UpdateDocumentPath(ctx context.Context, id, newPath string) error {
	if newPath == "" {
		return domain.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET path = ?, updated_at = ? WHERE id = ?
	`, newPath, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document path: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns documents matching the filters, ordered by path.
func (s *Store) ListDocuments(ctx context.Context, filters domain.SearchFilters) ([]domain.Document, error) {
	query := `
		SELECT id, path, content_hash, media_type, size, modified_at, status, failure_reason, metadata, created_at, updated_at
		FROM documents`

	var clauses []string
	var args []any

	if len(filters.MediaTypes) > 0 {
		placeholders := make([]string, len(filters.MediaTypes))
		for i, mt := range filters.MediaTypes {
			placeholders[i] = "?"
			args = append(args, string(mt))
		}
		clauses = append(clauses, "media_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filters.PathPrefix != "" {
		prefix := strings.TrimRight(filters.PathPrefix, "/")
		clauses = append(clauses, "(path = ? OR path LIKE ? ESCAPE '\\')")
		args = append(args, prefix, escapeLike(prefix)+"/%")
	}
	if !filters.ModifiedAfter.IsZero() {
		clauses = append(clauses, "modified_at > ?")
		args = append(args, filters.ModifiedAfter.UTC())
	}
	if !filters.ModifiedBefore.IsZero() {
		clauses = append(clauses, "modified_at < ?")
		args = append(args, filters.ModifiedBefore.UTC())
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Chunks ====================

// InsertChunks stores chunks in a single transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, start_offset, end_offset, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Position, chunk.StartOffset, chunk.EndOffset,
			embeddingBlob, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, start_offset, end_offset, embedding, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, content, position, start_offset, end_offset, embedding, metadata
		FROM chunks WHERE id = ?
	`, id)

	return scanChunkRow(row)
}

// DeleteChunks removes all chunks for a document and returns the IDs
// that were removed.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return nil, fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ids, nil
}

// DeleteChunksByID removes specific chunk rows.
func (s *Store) DeleteChunksByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE id IN ("+strings.Join(placeholders, ", ")+")", args...)
	if err != nil {
		return fmt.Errorf("deleting chunks by id: %w", err)
	}
	return nil
}

// AllChunkIDs returns every chunk ID in the store.
func (s *Store) AllChunkIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}

	return ids, nil
}

// ==================== Meta ====================

// GetMeta retrieves a store-level metadata value.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a store-level metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving meta: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// scanDocumentRow scans a single document row.
func scanDocumentRow(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var mediaType, status, metadataJSON string
	var modifiedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Path, &doc.ContentHash, &mediaType, &doc.Size,
		&modifiedAt, &status, &doc.FailureReason, &metadataJSON,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.MediaType = domain.MediaType(mediaType)
	doc.Status = domain.ExtractionStatus(status)
	if modifiedAt.Valid {
		doc.ModifiedAt = modifiedAt.Time
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var mediaType, status, metadataJSON string
	var modifiedAt sql.NullTime

	if err := rows.Scan(&doc.ID, &doc.Path, &doc.ContentHash, &mediaType, &doc.Size,
		&modifiedAt, &status, &doc.FailureReason, &metadataJSON,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.MediaType = domain.MediaType(mediaType)
	doc.Status = domain.ExtractionStatus(status)
	if modifiedAt.Valid {
		doc.ModifiedAt = modifiedAt.Time
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &chunk.StartOffset, &chunk.EndOffset,
		&embeddingBlob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &chunk.StartOffset, &chunk.EndOffset,
		&embeddingBlob, &metadataJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
