package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/logger"
)

// Coordinator keeps the metadata store and the vector index in step.
//
// Neither store supports a transaction spanning both, so the write
// order is fixed: the document goes in as pending, old chunks and
// vectors are removed, fresh chunk rows are inserted, their vectors are
// added, and only then does the document flip to extracted. A crash at
// any point leaves either a pending document or orphaned rows/vectors,
// both of which Reconcile detects and repairs. Reads only ever surface
// extracted documents, so a half-finished write is never visible.
type Coordinator struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
}

// NewCoordinator creates a dual-store coordinator.
func NewCoordinator(docStore driven.DocumentStore, vectorIndex driven.VectorIndex) *Coordinator {
	return &Coordinator{
		docStore:    docStore,
		vectorIndex: vectorIndex,
	}
}

// CommitDocument atomically replaces a document's content: the old
// chunk set and its vectors disappear, the new set appears, and the
// document becomes visible to search. Chunk IDs are never reused
// across replacements. On a partial vector write the new rows and
// vectors are rolled back and the document is marked failed.
func (c *Coordinator) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	doc.Status = domain.StatusPending
	doc.FailureReason = ""
	if err := c.docStore.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	// The upsert keyed on path may have kept an earlier document ID;
	// re-read so chunk rows attach to the real identity.
	stored, err := c.docStore.GetDocumentByPath(ctx, doc.Path)
	if err != nil {
		return fmt.Errorf("reading back document: %w", err)
	}
	doc.ID = stored.ID
	for i := range chunks {
		chunks[i].DocumentID = stored.ID
	}

	if err := c.deleteChunkSet(ctx, stored.ID); err != nil {
		return err
	}

	if err := c.docStore.InsertChunks(ctx, chunks); err != nil {
		c.markFailed(ctx, stored.ID, "storing chunks: "+err.Error())
		return fmt.Errorf("inserting chunks: %w", err)
	}

	for i, chunk := range chunks {
		if err := c.vectorIndex.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			c.rollbackVectors(ctx, chunks[:i+1])
			c.markFailed(ctx, stored.ID, "indexing vectors: "+err.Error())
			return fmt.Errorf("adding vector for chunk %d: %w", chunk.Position, err)
		}
	}

	// Make the vectors durable before the document becomes visible;
	// a crash after this point loses nothing from this commit.
	if err := c.vectorIndex.Flush(); err != nil {
		c.rollbackVectors(ctx, chunks)
		c.markFailed(ctx, stored.ID, "flushing vector index: "+err.Error())
		return fmt.Errorf("flushing vector index: %w", err)
	}

	if err := c.docStore.SetDocumentStatus(ctx, stored.ID, domain.StatusExtracted, ""); err != nil {
		return fmt.Errorf("marking document extracted: %w", err)
	}
	return nil
}

// Tombstone removes a document and everything derived from it, in the
// order that keeps a crash recoverable: vectors, chunk rows, document.
func (c *Coordinator) Tombstone(ctx context.Context, path string) error {
	doc, err := c.docStore.GetDocumentByPath(ctx, path)
	if err != nil {
		return err
	}

	if err := c.deleteChunkSet(ctx, doc.ID); err != nil {
		return err
	}
	if err := c.docStore.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Reconcile cross-checks the two stores and deletes orphans in both
// directions: chunk rows with no vector and vectors with no chunk row.
// Documents that owned orphaned chunk rows have lost vectors and are
// marked failed, which defeats the content-hash short-circuit and
// forces the next ingestion to rebuild them. Documents left pending by
// an interrupted run are marked failed too. Returns the repaired IDs.
func (c *Coordinator) Reconcile(ctx context.Context) (orphanChunks, orphanVectors []string, err error) {
	chunkIDs, err := c.docStore.AllChunkIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing chunk ids: %w", err)
	}
	vectorIDs, err := c.vectorIndex.IDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing vector ids: %w", err)
	}

	inStore := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		inStore[id] = true
	}
	inIndex := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		inIndex[id] = true
	}

	for _, id := range chunkIDs {
		if !inIndex[id] {
			orphanChunks = append(orphanChunks, id)
		}
	}
	for _, id := range vectorIDs {
		if !inStore[id] {
			orphanVectors = append(orphanVectors, id)
		}
	}

	if len(orphanChunks) > 0 {
		logger.Warn("reconcile: %d chunk rows without vectors, removing", len(orphanChunks))

		// Resolve owners while the rows still exist. Left extracted,
		// these documents would match the content-hash check on the
		// next ingestion and never regain their vectors.
		owners := make(map[string]bool)
		for _, id := range orphanChunks {
			chunk, chunkErr := c.docStore.GetChunk(ctx, id)
			if errors.Is(chunkErr, domain.ErrNotFound) {
				continue
			}
			if chunkErr != nil {
				return nil, nil, fmt.Errorf("%w: resolving orphan chunk %s: %w", domain.ErrStorageInconsistency, id, chunkErr)
			}
			owners[chunk.DocumentID] = true
		}

		if err := c.docStore.DeleteChunksByID(ctx, orphanChunks); err != nil {
			return nil, nil, fmt.Errorf("%w: deleting orphan chunks: %w", domain.ErrStorageInconsistency, err)
		}

		for documentID := range owners {
			c.markFailed(ctx, documentID, "vectors lost, re-ingestion required")
		}
	}
	for _, id := range orphanVectors {
		logger.Warn("reconcile: vector %s has no chunk row, removing", id)
		if err := c.vectorIndex.Delete(ctx, id); err != nil {
			return nil, nil, fmt.Errorf("%w: deleting orphan vector: %w", domain.ErrStorageInconsistency, err)
		}
	}

	if err := c.failPendingDocuments(ctx); err != nil {
		return nil, nil, err
	}

	return orphanChunks, orphanVectors, nil
}

// deleteChunkSet removes a document's vectors then its chunk rows.
// Vector deletion is idempotent, so a crash between the two steps
// leaves only rows that the next Reconcile clears.
func (c *Coordinator) deleteChunkSet(ctx context.Context, documentID string) error {
	chunks, err := c.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reading chunks: %w", err)
	}
	for _, chunk := range chunks {
		if err := c.vectorIndex.Delete(ctx, chunk.ID); err != nil {
			return fmt.Errorf("deleting vector %s: %w", chunk.ID, err)
		}
	}
	if _, err := c.docStore.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// rollbackVectors removes vectors added during a failed commit.
func (c *Coordinator) rollbackVectors(ctx context.Context, chunks []domain.Chunk) {
	for _, chunk := range chunks {
		if err := c.vectorIndex.Delete(ctx, chunk.ID); err != nil {
			logger.Warn("rollback: deleting vector %s: %v", chunk.ID, err)
		}
	}
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	if err := c.docStore.DeleteChunksByID(ctx, ids); err != nil {
		logger.Warn("rollback: deleting chunk rows: %v", err)
	}
}

// markFailed records a failure reason, tolerating a missing document.
func (c *Coordinator) markFailed(ctx context.Context, documentID, reason string) {
	err := c.docStore.SetDocumentStatus(ctx, documentID, domain.StatusFailed, reason)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("marking document %s failed: %v", documentID, err)
	}
}

// failPendingDocuments marks documents stuck in pending as failed.
// Pending only exists inside a commit; finding one at reconcile time
// means the run was interrupted.
func (c *Coordinator) failPendingDocuments(ctx context.Context) error {
	docs, err := c.docStore.ListDocuments(ctx, domain.SearchFilters{})
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	for i := range docs {
		if docs[i].Status != domain.StatusPending {
			continue
		}
		logger.Warn("reconcile: document %s was left pending, marking failed", docs[i].Path)
		if err := c.docStore.SetDocumentStatus(ctx, docs[i].ID, domain.StatusFailed, "interrupted during ingestion"); err != nil {
			return fmt.Errorf("failing pending document: %w", err)
		}
	}
	return nil
}
