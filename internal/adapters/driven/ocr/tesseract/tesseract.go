// Package tesseract provides an OCR backend that shells out to the
// tesseract binary.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.OCRBackend = (*Backend)(nil)

// DefaultLanguage is the tesseract language pack used when none is
// configured.
const DefaultLanguage = "eng"

// ErrTesseractNotFound indicates the tesseract binary is not installed.
var ErrTesseractNotFound = errors.New("tesseract not found in PATH")

// execRunner runs external commands for real.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Config holds configuration for the tesseract backend.
type Config struct {
	// Language is the tesseract language code (default: eng).
	Language string

	// MinWordConfidence drops individual words recognised below this
	// confidence (0-100). Zero keeps everything.
	MinWordConfidence float64
}

// Backend recognises text by invoking tesseract in TSV mode, which
// reports a per-word confidence alongside the text.
type Backend struct {
	runner  driven.CommandRunner
	lang    string
	minConf float64
}

// New creates a tesseract backend that shells out to the real binary.
func New(cfg Config) *Backend {
	return NewWithRunner(execRunner{}, cfg)
}

// NewWithRunner creates a tesseract backend with an injected command
// runner. Used by tests.
func NewWithRunner(runner driven.CommandRunner, cfg Config) *Backend {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Backend{runner: runner, lang: cfg.Language, minConf: cfg.MinWordConfidence}
}

// Available reports whether the tesseract binary is installed.
func (b *Backend) Available(_ context.Context) bool {
	_, err := exec.LookPath("tesseract")
	return err == nil
}

// Recognise runs OCR over the image bytes. Tesseract reads from a file,
// so the bytes go through a temp file that is removed afterwards.
func (b *Backend) Recognise(ctx context.Context, image []byte) (*driven.OCRResult, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidInput
	}

	tmp, err := os.CreateTemp("", "neonarc-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp image: %w", err)
	}

	out, err := b.runner.Run(ctx, "tesseract", tmp.Name(), "stdout", "-l", b.lang, "tsv")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOCRUnavailable, err)
	}

	text, confidence := b.parseTSV(string(out))
	return &driven.OCRResult{
		Text:       text,
		Confidence: confidence,
		Language:   b.lang,
	}, nil
}

// parseTSV reconstructs text and mean word confidence from tesseract's
// TSV output. Word rows carry level 5 and a non-negative confidence;
// structural rows (page, block, line) are skipped.
func (b *Backend) parseTSV(tsv string) (string, float64) {
	var sb strings.Builder
	var confSum float64
	var words int
	lastLine := ""

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue // header
		}
		fields := strings.Split(row, "\t")
		if len(fields) < 12 {
			continue
		}

		level := fields[0]
		if level != "5" {
			continue
		}

		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}
		if b.minConf > 0 && conf < b.minConf {
			continue
		}

		// block/par/line numbers identify the visual line.
		lineKey := fields[2] + "/" + fields[3] + "/" + fields[4]
		if sb.Len() > 0 {
			if lineKey == lastLine {
				sb.WriteString(" ")
			} else {
				sb.WriteString("\n")
			}
		}
		lastLine = lineKey

		sb.WriteString(word)
		confSum += conf
		words++
	}

	if words == 0 {
		return "", 0
	}
	return sb.String(), confSum / float64(words)
}

// InstallInstructions returns platform-specific installation help.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install tesseract:\n  brew install tesseract"
	case "linux":
		return "Install tesseract:\n  sudo apt install tesseract-ocr"
	default:
		return "Install tesseract OCR for your platform"
	}
}
