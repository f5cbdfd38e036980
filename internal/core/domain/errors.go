package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no extractor can handle.
	// The file is recorded as unsupported and the batch continues.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates a file exceeds the configured size limit.
	// Treated the same as an unsupported type: skipped, recorded.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrExtractionFailed indicates the extractor failed or yielded no text.
	// The document is marked failed; sibling files are unaffected.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmbeddingUnavailable indicates the embedding backend cannot be
	// reached or loaded. Fatal for the affected files, not for the run.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrOCRUnavailable indicates the OCR backend is not installed.
	ErrOCRUnavailable = errors.New("OCR backend unavailable")

	// ErrStorageInconsistency indicates the metadata store and vector
	// index disagree: a chunk row without its vector or a vector without
	// its chunk row. Detected at startup or by validate, auto-repaired.
	ErrStorageInconsistency = errors.New("metadata store and vector index are inconsistent")

	// ErrConcurrentModification indicates two ingestions contended for the
	// same path. Callers retry with backoff; it is never silently dropped.
	ErrConcurrentModification = errors.New("concurrent modification of the same path")

	// ErrModelMismatch indicates the configured embedding model differs
	// from the one the index was built with. Mixing embedding spaces
	// silently corrupts ranking, so search refuses to run.
	ErrModelMismatch = errors.New("embedding model does not match the indexed model")

	// ErrDimensionMismatch indicates a vector of the wrong length was
	// handed to the vector index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
