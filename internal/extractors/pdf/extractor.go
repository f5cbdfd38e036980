// Package pdf extracts text from PDF files using poppler's pdftotext,
// falling back to OCR for pages with no embedded text.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// ocrRenderDPI is the resolution pdftoppm renders image-only pages at.
const ocrRenderDPI = "300"

// execRunner runs external commands for real.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor handles PDF files. Embedded text is extracted per page;
// pages that yield none are rendered with pdftoppm and handed to the
// OCR backend when one is configured.
type Extractor struct {
	runner    driven.CommandRunner
	ocr       driven.OCRBackend
	threshold float64
}

// New creates a PDF extractor that shells out to the poppler tools.
// The OCR backend is optional; without it image-only pages yield no
// text. Pages recognised below the confidence threshold are kept but
// flagged in metadata.
func New(ocr driven.OCRBackend, threshold float64) *Extractor {
	return &Extractor{runner: execRunner{}, ocr: ocr, threshold: threshold}
}

// NewWithRunner creates a PDF extractor with an injected command
// runner. Used by tests.
func NewWithRunner(runner driven.CommandRunner, ocr driven.OCRBackend, threshold float64) *Extractor {
	return &Extractor{runner: runner, ocr: ocr, threshold: threshold}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaPDF}
}

// Extract pulls the embedded text of every page. Pages without
// extractable text are rendered to PNG and OCRed; their confidence is
// recorded in metadata and low-confidence text is flagged, never dropped.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("%w\n%s", ErrPDFToolNotFound, InstallInstructions())
	}

	pages, err := e.pageCount(ctx, raw.Path)
	if err != nil {
		// pdfinfo missing or unparsable output; extract in one pass.
		logger.Debug("pdf: page count unavailable for %s: %v", raw.Path, err)
		return e.extractWhole(ctx, raw)
	}

	var sb strings.Builder
	ocrPages := 0
	confidenceSum := 0.0
	lowConfidence := false
	meta := map[string]any{"pages": pages}

	for p := 1; p <= pages; p++ {
		text, pageErr := e.pageText(ctx, raw.Path, p)
		if pageErr != nil {
			return nil, fmt.Errorf("%w: page %d: %w", domain.ErrExtractionFailed, p, pageErr)
		}

		if strings.TrimSpace(text) == "" && e.ocrUsable(ctx) {
			ocrText, confidence, ocrErr := e.ocrPage(ctx, raw.Path, p)
			if ocrErr != nil {
				logger.Warn("pdf: OCR failed for %s page %d: %v", raw.Path, p, ocrErr)
			} else {
				text = ocrText
				confidenceSum += confidence
				ocrPages++
				if confidence < e.threshold {
					lowConfidence = true
				}
			}
		}

		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n\n")
	}

	e.applyOCRMeta(meta, ocrPages, confidenceSum, lowConfidence)

	text := strings.TrimSpace(sb.String())
	if text == "" {
		meta["empty"] = true
	}
	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}

// applyOCRMeta records OCR stats in metadata. Text recognised below
// the confidence threshold, on average or on any single page, is kept
// but flagged.
func (e *Extractor) applyOCRMeta(meta map[string]any, ocrPages int, confidenceSum float64, lowPage bool) {
	if ocrPages == 0 {
		return
	}
	avg := confidenceSum / float64(ocrPages)
	meta["ocr_pages"] = ocrPages
	meta["ocr_confidence"] = avg
	if lowPage || avg < e.threshold {
		meta["ocr_low_confidence"] = true
	}
}

// extractWhole extracts the full document in a single pdftotext pass.
func (e *Extractor) extractWhole(ctx context.Context, raw *domain.RawFile) (*driven.ExtractResult, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", raw.Path, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	text := strings.TrimSpace(string(out))
	meta := map[string]any{}
	if text == "" {
		meta["empty"] = true
	}
	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}

// pageText extracts the embedded text of one page.
func (e *Extractor) pageText(ctx context.Context, path string, page int) (string, error) {
	p := strconv.Itoa(page)
	out, err := e.runner.Run(ctx, "pdftotext", "-f", p, "-l", p, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ocrPage renders one page to PNG and runs it through the OCR backend.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int) (string, float64, error) {
	p := strconv.Itoa(page)
	png, err := e.runner.Run(ctx, "pdftoppm", "-png", "-r", ocrRenderDPI, "-f", p, "-l", p, path)
	if err != nil {
		return "", 0, fmt.Errorf("render page: %w", err)
	}

	result, err := e.ocr.Recognise(ctx, png)
	if err != nil {
		return "", 0, err
	}
	return result.Text, result.Confidence, nil
}

// ocrUsable reports whether OCR fallback can run: a backend is
// configured, installed, and pdftoppm is present to render pages.
func (e *Extractor) ocrUsable(ctx context.Context) bool {
	if e.ocr == nil || !e.ocr.Available(ctx) {
		return false
	}
	_, err := exec.LookPath("pdftoppm")
	return err == nil
}

// pageCount reads the page count from pdfinfo output.
func (e *Extractor) pageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, err
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if convErr != nil {
			return 0, fmt.Errorf("parse page count: %w", convErr)
		}
		return n, nil
	}
	return 0, errors.New("no Pages line in pdfinfo output")
}

// InstallInstructions returns platform-specific installation help for
// the poppler tools.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install poppler (provides pdftotext, pdftoppm, pdfinfo):\n  brew install poppler"
	case "linux":
		return "Install poppler (provides pdftotext, pdftoppm, pdfinfo):\n  sudo apt install poppler-utils"
	default:
		return "Install poppler for your platform to get pdftotext, pdftoppm and pdfinfo"
	}
}
