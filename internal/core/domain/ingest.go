package domain

// FileState is a per-file ingestion pipeline state.
type FileState string

// Pipeline states. Each file moves through them in order; failed is
// reachable from any processing state.
const (
	StateDiscovered FileState = "discovered"
	StateHashing    FileState = "hashing"
	StateUnchanged  FileState = "unchanged"
	StateChanged    FileState = "changed"
	StateExtracting FileState = "extracting"
	StateEmbedding  FileState = "embedding"
	StateStoring    FileState = "storing"
	StateDone       FileState = "done"
	StateFailed     FileState = "failed"
)

// Failure attributes an ingestion failure to a specific path.
type Failure struct {
	// Path is the file that failed.
	Path string

	// Cause is the human-readable failure cause.
	Cause string
}

// BatchResult aggregates the outcome of one ingestion batch.
// Per-file failures are collected here, never propagated to siblings.
type BatchResult struct {
	// Ingested counts files extracted, embedded and stored.
	Ingested int

	// Unchanged counts files skipped because their content hash matched
	// the stored document (the idempotence short-circuit).
	Unchanged int

	// Failed counts files that ended in the failed state.
	Failed int

	// Unsupported counts files skipped as unsupported or too large.
	Unsupported int

	// Removed counts documents pruned because their file disappeared.
	Removed int

	// Failures lists each failed or unsupported file with its cause.
	Failures []Failure
}

// Total returns the number of files the batch considered.
func (r BatchResult) Total() int {
	return r.Ingested + r.Unchanged + r.Failed + r.Unsupported
}

// Progress reports one file's transition during a batch. Implementations
// must not block: they are invoked from pipeline workers.
type Progress func(path string, state FileState)
