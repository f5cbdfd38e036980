package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neonarc/neonarc/internal/core/domain"
)

var (
	searchLimit   int
	searchJSON    bool
	searchTypes   []string
	searchPath    string
	searchAfter   string
	searchBefore  string
	searchContext int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the archive by meaning",
	Long: `Embeds the query and ranks documents by semantic similarity.
Multiple matching chunks from one document collapse into a single
result scored by the best chunk. Results are deterministic for a fixed
archive and model.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchTypes, "type", nil, "restrict to media types (text, markdown, pdf, image)")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "restrict to documents under this path")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "only documents modified after this date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "only documents modified before this date (YYYY-MM-DD)")
	searchCmd.Flags().IntVar(&searchContext, "context", 0, "print N neighbouring chunks around the best hit")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	filters, err := buildFilters()
	if err != nil {
		return err
	}

	results, err := searchService.Search(context.Background(), args[0], domain.SearchOptions{
		Limit:   searchLimit,
		Filters: filters,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if err := printResults(cmd, results, searchJSON); err != nil {
		return err
	}

	if searchContext > 0 && len(results) > 0 && !searchJSON {
		window, err := searchService.Context(context.Background(), results[0].Chunk.ID, searchContext)
		if err != nil {
			return fmt.Errorf("fetching context: %w", err)
		}
		cmd.Println("Context around the best hit:")
		for i := range window {
			marker := "   "
			if window[i].ID == results[0].Chunk.ID {
				marker = " > "
			}
			cmd.Printf("%s[%d] %s\n", marker, window[i].Position, window[i].Content)
		}
	}
	return nil
}

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar [path]",
	Short: "Find documents similar to a given one",
	Long: `Ranks archived documents by similarity to the document at the given
path, using its own chunk embeddings as the query. The document itself
is excluded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 10, "maximum number of results")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	results, err := searchService.Similar(context.Background(), args[0], similarLimit)
	if err != nil {
		return fmt.Errorf("similar failed: %w", err)
	}
	return printResults(cmd, results, false)
}

func buildFilters() (domain.SearchFilters, error) {
	var filters domain.SearchFilters
	for _, raw := range searchTypes {
		filters.MediaTypes = append(filters.MediaTypes, domain.MediaType(strings.ToLower(raw)))
	}
	filters.PathPrefix = searchPath

	if searchAfter != "" {
		at, err := time.Parse("2006-01-02", searchAfter)
		if err != nil {
			return filters, fmt.Errorf("invalid --after date %q: %w", searchAfter, err)
		}
		filters.ModifiedAfter = at
	}
	if searchBefore != "" {
		at, err := time.Parse("2006-01-02", searchBefore)
		if err != nil {
			return filters, fmt.Errorf("invalid --before date %q: %w", searchBefore, err)
		}
		filters.ModifiedBefore = at
	}
	return filters, nil
}

func printResults(cmd *cobra.Command, results []domain.SearchResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, results[i].Document.Path, results[i].Score)
		if results[i].Snippet != "" {
			cmd.Printf("      %s\n", results[i].Snippet)
		}
		cmd.Println()
	}
	return nil
}
