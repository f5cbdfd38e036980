// Package file loads and saves configuration as TOML, with environment
// variable overrides applied on top.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/logger"
)

// ConfigFileName is the name of the TOML config file.
const ConfigFileName = "config.toml"

// fileConfig mirrors domain.Config with TOML tags. Durations are
// strings ("500ms") so the file stays human-editable.
type fileConfig struct {
	DataDir      string `toml:"data_dir,omitempty"`
	ChunkSize    int    `toml:"chunk_size,omitempty"`
	ChunkOverlap int    `toml:"chunk_overlap,omitempty"`
	MaxFileSize  int64  `toml:"max_file_size,omitempty"`
	Workers      int    `toml:"workers,omitempty"`

	Embedding struct {
		Provider   string `toml:"provider,omitempty"`
		Model      string `toml:"model,omitempty"`
		BaseURL    string `toml:"base_url,omitempty"`
		APIKey     string `toml:"api_key,omitempty"`
		Dimensions int    `toml:"dimensions,omitempty"`
	} `toml:"embedding"`

	OCR struct {
		Enabled             *bool   `toml:"enabled,omitempty"`
		Language            string  `toml:"language,omitempty"`
		ConfidenceThreshold float64 `toml:"confidence_threshold,omitempty"`
	} `toml:"ocr"`

	Watch struct {
		DebounceWindow string   `toml:"debounce_window,omitempty"`
		Include        []string `toml:"include,omitempty"`
		Exclude        []string `toml:"exclude,omitempty"`
	} `toml:"watch"`
}

// DefaultDir returns the default config directory (~/.neonarc).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".neonarc"), nil
}

// Path returns the config file path within configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// Load builds the effective configuration: defaults, then the TOML file
// if present, then NEONARC_* environment variables. A .env file in the
// working directory is honoured for the environment step.
func Load(configDir string) (*domain.Config, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	cfg := domain.DefaultConfig()
	cfg.DataDir = filepath.Join(configDir, "data")

	if err := applyFile(Path(configDir), &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as TOML with restricted permissions.
func Save(configDir string, cfg *domain.Config) error {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var fc fileConfig
	fc.DataDir = cfg.DataDir
	fc.ChunkSize = cfg.ChunkSize
	fc.ChunkOverlap = cfg.ChunkOverlap
	fc.MaxFileSize = cfg.MaxFileSize
	fc.Workers = cfg.Workers
	fc.Embedding.Provider = string(cfg.Embedding.Provider)
	fc.Embedding.Model = cfg.Embedding.Model
	fc.Embedding.BaseURL = cfg.Embedding.BaseURL
	fc.Embedding.APIKey = cfg.Embedding.APIKey
	fc.Embedding.Dimensions = cfg.Embedding.Dimensions
	enabled := cfg.OCR.Enabled
	fc.OCR.Enabled = &enabled
	fc.OCR.Language = cfg.OCR.Language
	fc.OCR.ConfidenceThreshold = cfg.OCR.ConfidenceThreshold
	fc.Watch.DebounceWindow = cfg.Watch.DebounceWindow.String()
	fc.Watch.Include = cfg.Watch.IncludePatterns
	fc.Watch.Exclude = cfg.Watch.ExcludePatterns

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(Path(configDir), data, 0600)
}

// applyFile overlays values from the TOML file. A missing file is fine.
func applyFile(path string, cfg *domain.Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.ChunkSize != 0 {
		cfg.ChunkSize = fc.ChunkSize
	}
	if fc.ChunkOverlap != 0 {
		cfg.ChunkOverlap = fc.ChunkOverlap
	}
	if fc.MaxFileSize != 0 {
		cfg.MaxFileSize = fc.MaxFileSize
	}
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}

	if fc.Embedding.Provider != "" {
		cfg.Embedding.Provider = domain.EmbeddingProvider(fc.Embedding.Provider)
	}
	if fc.Embedding.Model != "" {
		cfg.Embedding.Model = fc.Embedding.Model
	}
	if fc.Embedding.BaseURL != "" {
		cfg.Embedding.BaseURL = fc.Embedding.BaseURL
	}
	if fc.Embedding.APIKey != "" {
		cfg.Embedding.APIKey = fc.Embedding.APIKey
	}
	if fc.Embedding.Dimensions != 0 {
		cfg.Embedding.Dimensions = fc.Embedding.Dimensions
	}

	if fc.OCR.Enabled != nil {
		cfg.OCR.Enabled = *fc.OCR.Enabled
	}
	if fc.OCR.Language != "" {
		cfg.OCR.Language = fc.OCR.Language
	}
	if fc.OCR.ConfidenceThreshold != 0 {
		cfg.OCR.ConfidenceThreshold = fc.OCR.ConfidenceThreshold
	}

	if fc.Watch.DebounceWindow != "" {
		d, err := time.ParseDuration(fc.Watch.DebounceWindow)
		if err != nil {
			return fmt.Errorf("parsing watch.debounce_window: %w", err)
		}
		cfg.Watch.DebounceWindow = d
	}
	if len(fc.Watch.Include) > 0 {
		cfg.Watch.IncludePatterns = fc.Watch.Include
	}
	if len(fc.Watch.Exclude) > 0 {
		cfg.Watch.ExcludePatterns = fc.Watch.Exclude
	}

	return nil
}

// applyEnv overlays NEONARC_* environment variables. A .env file in the
// working directory is loaded first; variables already set win.
func applyEnv(cfg *domain.Config) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug("config: skipping .env: %v", err)
	}

	if v := os.Getenv("NEONARC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NEONARC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("NEONARC_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSize = n
		}
	}
	if v := os.Getenv("NEONARC_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = domain.EmbeddingProvider(v)
	}
	if v := os.Getenv("NEONARC_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("NEONARC_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("NEONARC_OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("NEONARC_OCR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OCR.Enabled = b
		}
	}
	if v := os.Getenv("NEONARC_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
}

// validate rejects configurations that would misbehave at runtime.
func validate(cfg *domain.Config) error {
	if !cfg.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, cfg.Embedding.Provider)
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", domain.ErrInvalidInput)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", domain.ErrInvalidInput)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", domain.ErrInvalidInput)
	}
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive", domain.ErrInvalidInput)
	}
	if cfg.Watch.DebounceWindow < 0 {
		return fmt.Errorf("%w: watch.debounce_window cannot be negative", domain.ErrInvalidInput)
	}
	return nil
}
