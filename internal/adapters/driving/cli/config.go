package cli

import (
	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Long: `Writes the active configuration (defaults merged with any existing
file and environment overrides) to the config file, creating it if
needed.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Data directory:  %s\n", cfg.DataDir)
	cmd.Printf("Chunk size:      %d bytes (overlap %d)\n", cfg.ChunkSize, cfg.ChunkOverlap)
	cmd.Printf("Max file size:   %d bytes\n", cfg.MaxFileSize)
	cmd.Printf("Workers:         %d\n", cfg.Workers)
	cmd.Printf("Embedding:       %s", cfg.Embedding.Provider)
	if cfg.Embedding.Model != "" {
		cmd.Printf(" (%s)", cfg.Embedding.Model)
	}
	cmd.Println()
	cmd.Printf("OCR:             enabled=%t language=%s threshold=%.0f\n",
		cfg.OCR.Enabled, cfg.OCR.Language, cfg.OCR.ConfidenceThreshold)
	cmd.Printf("Debounce window: %s\n", cfg.Watch.DebounceWindow)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := configDirFlag
	if dir == "" {
		dir, err = file.DefaultDir()
		if err != nil {
			return err
		}
	}

	if err := file.Save(dir, cfg); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", file.Path(dir))
	return nil
}
