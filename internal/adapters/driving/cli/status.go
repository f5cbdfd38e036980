package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/adapters/driven/ocr/tesseract"
	"github.com/neonarc/neonarc/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report archive and component health",
	Long: `Shows the archive size and checks each component: the metadata store,
the vector index, the embedding backend and the OCR engine.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	infos, err := documentService.List(ctx, domain.SearchFilters{}, "name", false)
	if err != nil {
		return err
	}
	chunks := 0
	extracted := 0
	failed := 0
	for i := range infos {
		chunks += infos[i].ChunkCount
		switch infos[i].Document.Status {
		case domain.StatusExtracted:
			extracted++
		case domain.StatusFailed:
			failed++
		}
	}

	cmd.Printf("Archive:   %d documents (%d extracted, %d failed), %d chunks\n",
		len(infos), extracted, failed, chunks)
	if appConfig != nil {
		cmd.Printf("Data dir:  %s\n", appConfig.DataDir)
	}
	cmd.Println()

	if embeddingBackend != nil {
		if err := embeddingBackend.Ping(ctx); err != nil {
			cmd.Printf("Embedding: UNAVAILABLE (%s): %v\n", embeddingBackend.ModelName(), err)
		} else {
			cmd.Printf("Embedding: ok (%s, %d dimensions)\n",
				embeddingBackend.ModelName(), embeddingBackend.Dimensions())
		}
	}

	switch {
	case ocrBackend == nil:
		cmd.Println("OCR:       disabled")
	case ocrBackend.Available(ctx):
		cmd.Println("OCR:       ok (tesseract)")
	default:
		cmd.Println("OCR:       NOT INSTALLED")
		cmd.Println(tesseract.InstallInstructions())
	}
	return nil
}
