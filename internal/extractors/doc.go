// Package extractors turns raw file bytes into text.
//
// Each sub-package handles one family of media types (plain text,
// markdown, PDF, raster images) behind the same extraction contract.
// The registry detects a file's media type by inspecting its leading
// bytes, never the extension alone, and dispatches to the matching
// extractor.
package extractors
