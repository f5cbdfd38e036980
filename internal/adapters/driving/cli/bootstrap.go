package cli

import (
	"fmt"
	"io"

	"github.com/neonarc/neonarc/internal/adapters/driven/config/file"
	"github.com/neonarc/neonarc/internal/adapters/driven/embedding/ollama"
	"github.com/neonarc/neonarc/internal/adapters/driven/embedding/openai"
	"github.com/neonarc/neonarc/internal/adapters/driven/embedding/static"
	"github.com/neonarc/neonarc/internal/adapters/driven/ocr/tesseract"
	"github.com/neonarc/neonarc/internal/adapters/driven/storage/sqlite"
	"github.com/neonarc/neonarc/internal/adapters/driven/vector/flat"
	watchfs "github.com/neonarc/neonarc/internal/adapters/driven/watch/fsnotify"
	"github.com/neonarc/neonarc/internal/chunker"
	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driven"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
	"github.com/neonarc/neonarc/internal/core/services"
	"github.com/neonarc/neonarc/internal/extractors"
	"github.com/neonarc/neonarc/internal/extractors/image"
	"github.com/neonarc/neonarc/internal/extractors/markdown"
	"github.com/neonarc/neonarc/internal/extractors/pdf"
	"github.com/neonarc/neonarc/internal/extractors/plaintext"
)

// Services wired at startup. Tests inject fakes here instead of
// calling ensureServices.
var (
	appConfig       *domain.Config
	ingestService   driving.Ingestor
	searchService   driving.Searcher
	documentService driving.DocumentService
	watchService    driving.Watcher

	// Held for the status command's component checks.
	embeddingBackend driven.EmbeddingService
	ocrBackend       driven.OCRBackend

	closers []io.Closer
)

// ensureServices wires the full service graph from configuration.
// Idempotent: a second call (or injected test services) is a no-op.
func ensureServices() error {
	if ingestService != nil {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if offlineFlag {
		cfg.Embedding.Provider = domain.ProviderStatic
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	closers = append(closers, store)

	index, err := flat.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	closers = append(closers, index)

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	closers = append(closers, embedder)
	embeddingBackend = embedder

	registry := buildRegistry(cfg)
	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	coordinator := services.NewCoordinator(store, index)
	ingestService = services.NewIngestService(coordinator, store, registry, splitter, embedder, cfg.Workers, cfg.MaxFileSize)
	searchService = services.NewSearchService(store, index, embedder)
	documentService = services.NewDocumentQueryService(store, index, coordinator)

	source := watchfs.New(watchfs.Config{
		DebounceWindow:  cfg.Watch.DebounceWindow,
		IncludePatterns: cfg.Watch.IncludePatterns,
		ExcludePatterns: cfg.Watch.ExcludePatterns,
	})
	watchService = services.NewWatchService(source, ingestService)

	appConfig = cfg
	return nil
}

// loadConfig resolves the config directory and loads the layered
// configuration (defaults, config.toml, environment).
func loadConfig() (*domain.Config, error) {
	dir := configDirFlag
	if dir == "" {
		var err error
		dir, err = file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
	}
	cfg, err := file.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// buildEmbedder constructs the configured embedding backend.
func buildEmbedder(cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case domain.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case domain.ProviderStatic:
		return static.NewEmbeddingService(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// buildRegistry constructs the extractor registry. The image extractor
// is only wired when OCR is enabled; PDFs degrade to text-layer-only
// extraction without it.
func buildRegistry(cfg *domain.Config) driven.ExtractorRegistry {
	var ocr driven.OCRBackend
	if cfg.OCR.Enabled {
		// Low-confidence results are flagged by the image extractor,
		// never dropped, so no per-word cutoff here.
		ocr = tesseract.New(tesseract.Config{Language: cfg.OCR.Language})
	}
	ocrBackend = ocr

	list := []driven.Extractor{
		plaintext.New(),
		markdown.New(),
		pdf.New(ocr, cfg.OCR.ConfidenceThreshold),
	}
	if ocr != nil {
		list = append(list, image.New(ocr, cfg.OCR.ConfidenceThreshold))
	}
	return extractors.NewRegistry(list...)
}

// closeServices releases everything ensureServices opened, in reverse
// order.
func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // shutdown path
	}
	closers = nil
}
