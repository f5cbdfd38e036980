package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/core/domain"
	"github.com/neonarc/neonarc/internal/core/ports/driving"
)

var (
	listSort    string
	listReverse bool
	listJSON    bool
	listTypes   []string
	listPath    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived documents",
	Long:  `Lists documents in the archive with their status and chunk counts.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", "name", "sort order: name, date, chunks")
	listCmd.Flags().BoolVar(&listReverse, "reverse", false, "reverse the sort order")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().StringSliceVar(&listTypes, "type", nil, "restrict to media types")
	listCmd.Flags().StringVar(&listPath, "path", "", "restrict to documents under this path")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	var filters domain.SearchFilters
	for _, raw := range listTypes {
		filters.MediaTypes = append(filters.MediaTypes, domain.MediaType(raw))
	}
	filters.PathPrefix = listPath

	order := driving.ListSort(listSort)
	switch order {
	case driving.SortByName, driving.SortByDate, driving.SortByChunks:
	default:
		return fmt.Errorf("unknown sort order %q (use name, date or chunks)", listSort)
	}

	infos, err := documentService.List(context.Background(), filters, order, listReverse)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(infos) == 0 {
		cmd.Println("Archive is empty.")
		return nil
	}

	for i := range infos {
		doc := &infos[i].Document
		cmd.Printf("%-10s %-9s %4d chunks  %s\n", doc.Status, doc.MediaType, infos[i].ChunkCount, doc.Path)
	}
	cmd.Printf("\n%d documents\n", len(infos))
	return nil
}

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [path]",
	Short: "Show details for one archived document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	info, err := documentService.Info(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("info failed: %w", err)
	}

	if infoJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	doc := &info.Document
	cmd.Printf("Path:       %s\n", doc.Path)
	cmd.Printf("Status:     %s\n", doc.Status)
	cmd.Printf("Type:       %s\n", doc.MediaType)
	cmd.Printf("Size:       %d bytes\n", doc.Size)
	cmd.Printf("Hash:       %s\n", doc.ContentHash)
	cmd.Printf("Modified:   %s\n", doc.ModifiedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("Chunks:     %d\n", info.ChunkCount)
	if doc.FailureReason != "" {
		cmd.Printf("Failure:    %s\n", doc.FailureReason)
	}
	return nil
}
