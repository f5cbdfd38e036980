package domain

import "time"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderOllama is a local Ollama instance (default).
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderOpenAI is the OpenAI embeddings API.
	ProviderOpenAI EmbeddingProvider = "openai"

	// ProviderStatic is the built-in deterministic embedder. It needs no
	// backend process and is used for offline mode and tests.
	ProviderStatic EmbeddingProvider = "static"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI, ProviderStatic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// Default configuration values.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultMaxFileSize    = 50 << 20 // 50 MiB
	DefaultWorkers        = 4
	DefaultDebounceWindow = 500 * time.Millisecond
	DefaultOCRLanguage    = "eng"
	DefaultOCRThreshold   = 60.0
)

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider is the embedding backend.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size. Determined by the model
	// and fixed for the lifetime of an index.
	Dimensions int
}

// OCRConfig configures the OCR backend.
type OCRConfig struct {
	// Enabled turns OCR on for images and image-only PDF pages.
	Enabled bool

	// Language is the tesseract language code (e.g. "eng").
	Language string

	// ConfidenceThreshold is the per-word confidence cutoff (0-100).
	// Results below it are kept but flagged, never silently dropped.
	ConfidenceThreshold float64
}

// WatchConfig configures the filesystem watcher.
type WatchConfig struct {
	// DebounceWindow is the quiet period before a path's burst of
	// events collapses into one ingestion trigger.
	DebounceWindow time.Duration

	// IncludePatterns are glob patterns a path must match (empty = all).
	IncludePatterns []string

	// ExcludePatterns are glob patterns that skip a path.
	ExcludePatterns []string
}

// Config is the process-wide configuration. It is built once at startup
// from the config file and environment, then passed explicitly to each
// component; nothing reads it ambiently and nothing mutates it.
type Config struct {
	// DataDir is the storage root holding the metadata store and the
	// vector index.
	DataDir string

	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int

	// ChunkOverlap is the overlap carried between hard-split chunks.
	ChunkOverlap int

	// MaxFileSize is the largest file ingested, in bytes.
	MaxFileSize int64

	// Workers is the ingestion worker pool size.
	Workers int

	// Embedding configures the embedding backend.
	Embedding EmbeddingConfig

	// OCR configures the OCR backend.
	OCR OCRConfig

	// Watch configures the filesystem watcher.
	Watch WatchConfig
}

// DefaultConfig returns a Config populated with defaults. The data
// directory is left empty for the caller to resolve.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MaxFileSize:  DefaultMaxFileSize,
		Workers:      DefaultWorkers,
		Embedding: EmbeddingConfig{
			Provider: ProviderOllama,
		},
		OCR: OCRConfig{
			Enabled:             true,
			Language:            DefaultOCRLanguage,
			ConfidenceThreshold: DefaultOCRThreshold,
		},
		Watch: WatchConfig{
			DebounceWindow: DefaultDebounceWindow,
		},
	}
}
