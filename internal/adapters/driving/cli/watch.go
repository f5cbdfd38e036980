package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchRecursive bool

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch directories and ingest changes automatically",
	Long: `Watches the given directories and feeds debounced filesystem events
into the ingestion pipeline: created and modified files are ingested,
deleted files are removed from the archive. Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", true, "watch subdirectories")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %d paths. Press Ctrl-C to stop.\n", len(args))

	err := watchService.Watch(ctx, args, watchRecursive)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	status := watchService.Status()
	cmd.Printf("\nStopped. %d events handled, %d errors.\n", status.Triggered, status.Errors)
	return nil
}
