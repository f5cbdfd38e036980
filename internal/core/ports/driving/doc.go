// Package driving provides interfaces the CLI calls into
// (primary/inbound ports): ingestion, search, document queries and
// watch sessions.
package driving
