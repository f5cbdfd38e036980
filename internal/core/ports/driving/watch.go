package driving

import "context"

// WatchStatus summarises a running watch session.
type WatchStatus struct {
	// Roots are the watched root paths.
	Roots []string

	// Triggered counts debounced events handed to the pipeline.
	Triggered int

	// Errors counts event handling failures.
	Errors int
}

// Watcher runs a long-lived watch session that feeds filesystem
// changes into the ingestion pipeline.
type Watcher interface {
	// Watch blocks until ctx is cancelled, ingesting changed files and
	// tombstoning deleted ones as debounced events arrive. In-flight
	// file pipelines run to the end of their coordinator transaction
	// before Watch returns.
	Watch(ctx context.Context, roots []string, recursive bool) error

	// Status returns counters for the current session.
	Status() WatchStatus
}
