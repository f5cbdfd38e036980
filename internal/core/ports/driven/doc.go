// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, the vector index, the embedding
// and OCR backends, and the filesystem event source.
package driven
