// Package cli implements the neonarc command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verboseFlag   bool
	configDirFlag string
	offlineFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "neonarc",
	Short: "Local-first document archivist with semantic search",
	Long: `NeonArc ingests your documents into a local archive and makes them
searchable by meaning, not just keywords. Text extraction, OCR,
embedding and indexing all run on this machine; nothing leaves it
unless you configure a remote embedding provider.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "config directory (default ~/.neonarc)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "use the built-in deterministic embedder, no backend required")
}

// Execute runs the root command and releases any services it wired up.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}
