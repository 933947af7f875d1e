package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed corpus",
	Long: `Runs a hybrid query against the index: vector similarity and lexical
relevance fused into a single ranking. Use --mode to run either half alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("size", 0, "maximum number of results (overrides config)")
	searchCmd.Flags().String("type", "", "filter by document type: regulatory_document or internal_policy")
	searchCmd.Flags().String("mode", "hybrid", "search mode: hybrid, vector, text")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	size, _ := cmd.Flags().GetInt("size")
	typeFilter, _ := cmd.Flags().GetString("type")
	mode, _ := cmd.Flags().GetString("mode")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if size <= 0 {
		size = cfg.Search.DefaultSize
	}
	if typeFilter != "" {
		if typeFilter, err = canonicalDocType(typeFilter); err != nil {
			return err
		}
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	idx, err := openIndex(ctx, cfg, true)
	if err != nil {
		return err
	}

	opts := searchOptions(cfg)
	opts.DocumentType = typeFilter
	searcher := search.NewSearcher(embedder, idx, opts)

	var results []search.ScoredDocument
	switch mode {
	case "hybrid":
		results, err = searcher.SearchByType(ctx, query, size, typeFilter)
	case "vector":
		hits, verr := searcher.VectorSearch(ctx, query, size)
		err = verr
		for _, h := range hits {
			results = append(results, search.ScoredDocument{Document: h.Document, VectorScore: h.Score, CombinedScore: h.Score})
		}
	case "text":
		hits, terr := searcher.TextSearch(ctx, query, size)
		err = terr
		for _, h := range hits {
			results = append(results, search.ScoredDocument{Document: h.Document, TextScore: h.Score, CombinedScore: h.Score})
		}
	default:
		return fmt.Errorf("unknown search mode %q (expected hybrid, vector or text)", mode)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	printSearchResultsTable(results)
	return nil
}

type searchResultJSON struct {
	Rank          int     `json:"rank"`
	CombinedScore float64 `json:"combined_score"`
	VectorScore   float64 `json:"vector_score"`
	TextScore     float64 `json:"text_score"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	ChunkID       string  `json:"chunk_id"`
	Text          string  `json:"text"`
}

func printSearchResultsJSON(results []search.ScoredDocument) error {
	var out []searchResultJSON
	for i, r := range results {
		out = append(out, searchResultJSON{
			Rank:          i + 1,
			CombinedScore: r.CombinedScore,
			VectorScore:   r.VectorScore,
			TextScore:     r.TextScore,
			DocumentID:    r.Document.DocumentID,
			DocumentTitle: r.Document.DocumentTitle,
			DocumentType:  r.Document.DocumentType,
			ChunkID:       r.Document.ChunkID,
			Text:          truncate(r.Document.Text, 500),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchResultsTable(results []search.ScoredDocument) {
	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Printf("  %d. [%.3f] %s (%s)\n", i+1, r.CombinedScore, r.Document.DocumentTitle, r.Document.DocumentType)
		fmt.Printf("     vector: %.3f  text: %.3f  chunk: %s\n", r.VectorScore, r.TextScore, r.Document.ChunkID)
		fmt.Printf("     %s\n\n", truncate(r.Document.Text, 160))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
