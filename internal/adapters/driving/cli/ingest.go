package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
)

var (
	ingestRecursive bool
	ingestPrune     bool
	ingestDryRun    bool
	ingestProgress  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest files or directories into the archive",
	Long: `Extracts text, chunks it, generates embeddings and stores everything
locally. Unchanged files (by content hash) are skipped; modified files
are re-ingested in place. One file's failure never aborts the rest of
the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	ingestCmd.Flags().BoolVar(&ingestPrune, "prune", false, "remove documents whose file no longer exists")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "report what would change without touching the archive")
	ingestCmd.Flags().BoolVar(&ingestProgress, "progress", false, "print per-file pipeline progress")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	opts := driving.IngestOptions{
		Recursive: ingestRecursive,
		Prune:     ingestPrune,
		DryRun:    ingestDryRun,
	}
	if ingestProgress {
		opts.Progress = func(path string, state domain.FileState) {
			cmd.Printf("  %-10s %s\n", state, path)
		}
	}

	result, err := ingestService.Ingest(context.Background(), args, opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if ingestDryRun {
		cmd.Println("Dry run; nothing was stored.")
	}
	cmd.Printf("Ingested:    %d\n", result.Ingested)
	cmd.Printf("Unchanged:   %d\n", result.Unchanged)
	cmd.Printf("Unsupported: %d\n", result.Unsupported)
	cmd.Printf("Failed:      %d\n", result.Failed)
	if result.Removed > 0 {
		cmd.Printf("Removed:     %d\n", result.Removed)
	}
	for _, failure := range result.Failures {
		cmd.Printf("  ! %s: %s\n", failure.Path, failure.Cause)
	}
	return nil
}

var rmCmd = &cobra.Command{
	Use:   "rm [path]",
	Short: "Remove a document from the archive",
	Long: `Removes the document at the given path from the archive: its vectors,
its chunks and its metadata. The file itself is untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if err := ingestService.Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s\n", args[0])
	return nil
}
