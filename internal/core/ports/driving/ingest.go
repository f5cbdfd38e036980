package driving

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// IngestOptions configures an ingestion batch.
type IngestOptions struct {
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool

	// DryRun reports which files would be ingested or removed without
	// touching the stores.
	DryRun bool

	// Prune removes documents whose file no longer exists under the
	// ingested paths.
	Prune bool

	// Progress, when set, receives per-file state transitions. It is
	// invoked from worker goroutines and must not block.
	Progress domain.Progress
}

// Ingestor runs the per-file ingestion pipeline over a set of paths.
type Ingestor interface {
	// Ingest processes the given files or directories with bounded
	// parallelism. One file's failure never aborts its siblings; the
	// batch result aggregates every outcome. A systemic failure (store
	// or embedding backend down for all files) aborts early with a
	// top-level error.
	Ingest(ctx context.Context, paths []string, opts IngestOptions) (*domain.BatchResult, error)

	// Remove tombstones a document by path: vectors, chunk rows, then
	// the document row.
	Remove(ctx context.Context, path string) error
}
