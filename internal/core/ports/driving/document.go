package driving

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// ListSort orders document listings.
type ListSort string

// Available list orderings.
const (
	SortByDate   ListSort = "date"
	SortByName   ListSort = "name"
	SortByChunks ListSort = "chunks"
)

// DocumentInfo is a document with its chunk count, for listings.
type DocumentInfo struct {
	Document   domain.Document
	ChunkCount int
}

// ValidationReport describes stores-vs-filesystem discrepancies.
type ValidationReport struct {
	// Documents is the number of documents examined.
	Documents int

	// Chunks is the number of chunk rows examined.
	Chunks int

	// Vectors is the number of vectors in the index.
	Vectors int

	// MissingFiles are document paths with no file on disk.
	MissingFiles []string

	// ModifiedFiles are paths whose on-disk hash no longer matches the
	// stored document.
	ModifiedFiles []string

	// OrphanChunks are chunk IDs that had a row but no vector (repaired).
	OrphanChunks []string

	// OrphanVectors are chunk IDs that had a vector but no row (repaired).
	OrphanVectors []string
}

// Clean returns true when the report found no discrepancies.
func (r *ValidationReport) Clean() bool {
	return len(r.MissingFiles) == 0 && len(r.ModifiedFiles) == 0 &&
		len(r.OrphanChunks) == 0 && len(r.OrphanVectors) == 0
}

// DocumentService answers queries about stored documents.
type DocumentService interface {
	// List returns documents matching the filters in the given order.
	List(ctx context.Context, filters domain.SearchFilters, sort ListSort, reverse bool) ([]DocumentInfo, error)

	// Info returns the document at the given path with its chunk count.
	Info(ctx context.Context, path string) (*DocumentInfo, error)

	// Validate cross-checks the metadata store, the vector index and
	// the filesystem, repairing any store inconsistency it finds.
	Validate(ctx context.Context, paths []string) (*ValidationReport, error)
}
