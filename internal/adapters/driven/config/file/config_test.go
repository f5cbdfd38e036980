package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(Path(dir), []byte(content), 0600))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, domain.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, domain.DefaultChunkOverlap, cfg.ChunkOverlap)
	assert.Equal(t, domain.DefaultWorkers, cfg.Workers)
	assert.Equal(t, domain.ProviderOllama, cfg.Embedding.Provider)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, domain.DefaultDebounceWindow, cfg.Watch.DebounceWindow)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
chunk_size = 2000
workers = 8

[embedding]
provider = "static"
dimensions = 128

[ocr]
enabled = false
language = "deu"

[watch]
debounce_window = "2s"
exclude = ["*.tmp", ".git/**"]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, domain.ProviderStatic, cfg.Embedding.Provider)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, 2*time.Second, cfg.Watch.DebounceWindow)
	assert.Equal(t, []string{"*.tmp", ".git/**"}, cfg.Watch.ExcludePatterns)

	// Unset values keep their defaults.
	assert.Equal(t, domain.DefaultChunkOverlap, cfg.ChunkOverlap)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[embedding]
provider = "ollama"
`)

	t.Setenv("NEONARC_EMBEDDING_PROVIDER", "static")
	t.Setenv("NEONARC_WORKERS", "2")
	t.Setenv("NEONARC_OCR_ENABLED", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderStatic, cfg.Embedding.Provider)
	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.OCR.Enabled)
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown provider", "[embedding]\nprovider = \"mystery\"\n"},
		{"overlap exceeds size", "chunk_size = 100\nchunk_overlap = 100\n"},
		{"negative workers", "workers = -1\n"},
		{"bad debounce", "[watch]\ndebounce_window = \"soon\"\n"},
		{"malformed toml", "chunk_size = = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.toml)

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.DataDir = "/tmp/archive-data"
	cfg.ChunkSize = 1500
	cfg.Embedding.Provider = domain.ProviderStatic
	cfg.Embedding.Dimensions = 64
	cfg.OCR.Enabled = false
	cfg.Watch.DebounceWindow = 750 * time.Millisecond
	cfg.Watch.ExcludePatterns = []string{"*.bak"}

	require.NoError(t, Save(dir, &cfg))
	assert.FileExists(t, Path(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/archive-data", loaded.DataDir)
	assert.Equal(t, 1500, loaded.ChunkSize)
	assert.Equal(t, domain.ProviderStatic, loaded.Embedding.Provider)
	assert.Equal(t, 64, loaded.Embedding.Dimensions)
	assert.False(t, loaded.OCR.Enabled)
	assert.Equal(t, 750*time.Millisecond, loaded.Watch.DebounceWindow)
	assert.Equal(t, []string{"*.bak"}, loaded.Watch.ExcludePatterns)
}
