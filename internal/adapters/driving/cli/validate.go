package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check the archive for inconsistencies",
	Long: `Cross-checks the metadata store, the vector index and the filesystem.
Store inconsistencies (orphaned chunks or vectors, interrupted
ingestions) are repaired in place. Missing or modified files are
reported; re-ingest to fix them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	report, err := documentService.Validate(context.Background(), args)
	if err != nil {
		return fmt.Errorf("validate failed: %w", err)
	}

	cmd.Printf("Documents: %d\n", report.Documents)
	cmd.Printf("Chunks:    %d\n", report.Chunks)
	cmd.Printf("Vectors:   %d\n", report.Vectors)

	if report.Clean() {
		cmd.Println("\nArchive is consistent.")
		return nil
	}

	for _, path := range report.MissingFiles {
		cmd.Printf("  missing file: %s\n", path)
	}
	for _, path := range report.ModifiedFiles {
		cmd.Printf("  modified since ingestion: %s\n", path)
	}
	if n := len(report.OrphanChunks); n > 0 {
		cmd.Printf("  repaired %d orphaned chunks\n", n)
	}
	if n := len(report.OrphanVectors); n > 0 {
		cmd.Printf("  repaired %d orphaned vectors\n", n)
	}
	cmd.Println("\nRe-ingest the paths above to bring the archive up to date.")
	return nil
}
