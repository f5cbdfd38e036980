package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
	"github.com/neonarc/neonarc/internal/logger"
)

var _ driving.DocumentService = (*DocumentQueryService)(nil)

// DocumentQueryService answers listing and inspection queries and runs
// the validate-and-repair pass.
type DocumentQueryService struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	coordinator *Coordinator
}

// NewDocumentQueryService creates a document query service.
func NewDocumentQueryService(docStore driven.DocumentStore, vectorIndex driven.VectorIndex, coordinator *Coordinator) *DocumentQueryService {
	return &DocumentQueryService{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		coordinator: coordinator,
	}
}

// List returns documents matching the filters in the requested order.
func (s *DocumentQueryService) List(ctx context.Context, filters domain.SearchFilters, sortBy driving.ListSort, reverse bool) ([]driving.DocumentInfo, error) {
	docs, err := s.docStore.ListDocuments(ctx, filters)
	if err != nil {
		return nil, err
	}

	infos := make([]driving.DocumentInfo, 0, len(docs))
	for i := range docs {
		chunks, err := s.docStore.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, driving.DocumentInfo{Document: docs[i], ChunkCount: len(chunks)})
	}

	less := lessFunc(infos, sortBy)
	sort.SliceStable(infos, less)
	if reverse {
		for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
			infos[i], infos[j] = infos[j], infos[i]
		}
	}
	return infos, nil
}

// lessFunc returns the ordering for the given sort key. Path breaks
// every tie so listings are stable across runs.
func lessFunc(infos []driving.DocumentInfo, sortBy driving.ListSort) func(i, j int) bool {
	switch sortBy {
	case driving.SortByDate:
		return func(i, j int) bool {
			a, b := infos[i].Document.ModifiedAt, infos[j].Document.ModifiedAt
			if !a.Equal(b) {
				return a.After(b)
			}
			return infos[i].Document.Path < infos[j].Document.Path
		}
	case driving.SortByChunks:
		return func(i, j int) bool {
			if infos[i].ChunkCount != infos[j].ChunkCount {
				return infos[i].ChunkCount > infos[j].ChunkCount
			}
			return infos[i].Document.Path < infos[j].Document.Path
		}
	default: // SortByName
		return func(i, j int) bool {
			return infos[i].Document.Path < infos[j].Document.Path
		}
	}
}

// Info returns the document at path with its chunk count.
func (s *DocumentQueryService) Info(ctx context.Context, path string) (*driving.DocumentInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	doc, err := s.docStore.GetDocumentByPath(ctx, abs)
	if err != nil {
		return nil, err
	}

	chunks, err := s.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentInfo{Document: *doc, ChunkCount: len(chunks)}, nil
}

// Validate cross-checks the metadata store, the vector index and the
// filesystem. Store inconsistencies are repaired in place; filesystem
// drift (missing or edited files) is only reported, re-ingestion fixes
// those.
func (s *DocumentQueryService) Validate(ctx context.Context, paths []string) (*driving.ValidationReport, error) {
	logger.Section("Validation")

	var filters domain.SearchFilters
	if len(paths) == 1 {
		abs, err := filepath.Abs(paths[0])
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		filters.PathPrefix = abs
	}

	docs, err := s.docStore.ListDocuments(ctx, filters)
	if err != nil {
		return nil, err
	}

	report := &driving.ValidationReport{Documents: len(docs)}

	for i := range docs {
		doc := &docs[i]

		chunks, err := s.docStore.GetChunks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		report.Chunks += len(chunks)

		if doc.Status != domain.StatusExtracted {
			continue
		}

		content, err := os.ReadFile(doc.Path)
		if errors.Is(err, os.ErrNotExist) {
			report.MissingFiles = append(report.MissingFiles, doc.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", doc.Path, err)
		}
		if hashBytes(content) != doc.ContentHash {
			report.ModifiedFiles = append(report.ModifiedFiles, doc.Path)
		}
	}

	orphanChunks, orphanVectors, err := s.coordinator.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	report.OrphanChunks = orphanChunks
	report.OrphanVectors = orphanVectors

	ids, err := s.vectorIndex.IDs(ctx)
	if err != nil {
		return nil, err
	}
	report.Vectors = len(ids)

	if report.Clean() {
		logger.Info("validation clean: %d documents, %d chunks, %d vectors",
			report.Documents, report.Chunks, report.Vectors)
	} else {
		logger.Warn("validation found %d missing, %d modified, %d orphan chunks, %d orphan vectors",
			len(report.MissingFiles), len(report.ModifiedFiles),
			len(report.OrphanChunks), len(report.OrphanVectors))
	}
	return report, nil
}
