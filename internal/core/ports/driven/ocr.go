package driven

import "context"

// OCRBackend recognises text in raster images. Consumed as a black-box
// capability; the core depends only on this signature.
type OCRBackend interface {
	// Recognise runs OCR over image bytes and returns the recognised
	// text with an average word confidence (0-100).
	Recognise(ctx context.Context, image []byte) (*OCRResult, error)

	// Available reports whether the backend is installed and usable.
	Available(ctx context.Context) bool
}

// OCRResult is the output of one OCR pass.
type OCRResult struct {
	// Text is the recognised text.
	Text string

	// Confidence is the mean word confidence (0-100).
	Confidence float64

	// Language is the language configuration used.
	Language string
}

// CommandRunner executes an external tool and returns its stdout.
// Extractors and OCR backends that shell out (pdftotext, pdftoppm,
// tesseract) take a runner so tests can inject a double.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
