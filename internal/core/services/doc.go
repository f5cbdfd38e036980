// Package services implements the core application logic: the
// ingestion pipeline, the dual-store coordinator, search, document
// queries and watch sessions. Services depend only on the ports;
// adapters are injected at startup.
package services
