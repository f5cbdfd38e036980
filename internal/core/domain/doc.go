// Package domain contains the core business entities: documents, chunks,
// filesystem events, search types and configuration. It has no
// dependencies on adapters or infrastructure.
package domain
