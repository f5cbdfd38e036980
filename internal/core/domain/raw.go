package domain

// RawFile represents opaque file bytes handed to an extractor.
type RawFile struct {
	// Path is the absolute filesystem path.
	Path string

	// MediaType is the detected content type.
	MediaType MediaType

	// Content is the raw file bytes.
	Content []byte
}
