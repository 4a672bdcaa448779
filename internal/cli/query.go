package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText  string
	queryIndex string
	queryTopK  int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search a collection",
	Long: `Search a collection for the chunks most relevant to a query.

Examples:
  semkb query -q "connection pooling" --index docs
  semkb query -q "error handling" --index docs -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().StringVarP(&queryIndex, "index", "c", "", "collection to search (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
	queryCmd.MarkFlagRequired("index")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	models, err := buildModels(cfg)
	if err != nil {
		return err
	}
	if err := models.Open(cmd.Context()); err != nil {
		return fmt.Errorf("model startup failed: %w", err)
	}
	defer models.Close()

	topK := cfg.Retrieval.DefaultTopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	searcher := newSearcher(cfg, st, models)
	results, err := searcher.Search(cmd.Context(), queryIndex, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s#%d (score: %.4f) ---\n", i+1, r.SourceDocument, r.ChunkOffset, r.RelevanceScore)
		text := r.Content
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
