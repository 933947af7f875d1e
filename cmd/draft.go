package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/extraction"
	"github.com/reglens/reglens/internal/index"
	"github.com/reglens/reglens/internal/search"
)

var draftCmd = &cobra.Command{
	Use:   "draft [regulation-file]",
	Short: "Analyze one regulation and draft policy amendments",
	Long: `Reads a specific regulation from a text file, retrieves the internal
policies most relevant to it from the index, identifies compliance gaps
against that regulation alone, and drafts policy amendments for every gap.`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func init() {
	draftCmd.Flags().String("title", "", "regulation title (defaults to the file name)")
	draftCmd.Flags().Int("size", 0, "policies to retrieve (overrides config)")
	draftCmd.Flags().String("org-context", "", "organization background for drafting")
	draftCmd.Flags().Bool("json", false, "output gaps and amendments as JSON")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	title, _ := cmd.Flags().GetString("title")
	size, _ := cmd.Flags().GetInt("size")
	orgContext, _ := cmd.Flags().GetString("org-context")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading regulation: %w", err)
	}
	if title == "" {
		title = docTitle(path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if size <= 0 {
		size = cfg.Search.DefaultSize
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	provider, err := createProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	idx, err := openIndex(ctx, cfg, true)
	if err != nil {
		return err
	}
	records, cleanup, err := openRecords(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	searcher := search.NewSearcher(embedder, idx, searchOptions(cfg))
	policies, err := searcher.SearchByType(ctx, title, size, index.DocTypeInternalPolicy)
	if err != nil {
		return fmt.Errorf("retrieving internal policies: %w", err)
	}
	if len(policies) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no internal policies retrieved, analysis may be limited")
	}

	policyDocs := make([]extraction.ContextDocument, len(policies))
	for i, p := range policies {
		policyDocs[i] = extraction.ContextDocument{
			Title: p.Document.DocumentTitle,
			Type:  p.Document.DocumentType,
			Text:  p.Document.Text,
		}
	}

	opts := extractionOptions(cfg)
	analyzer := extraction.NewAnalyzer(provider, cfg.Model, opts)
	drafter := extraction.NewDrafter(provider, cfg.Model, opts)

	gaps, err := analyzer.AnalyzeRegulation(ctx, title, string(data), policyDocs)
	if err != nil {
		return fmt.Errorf("regulation analysis failed: %w", err)
	}

	var amendments []extraction.Amendment
	if len(gaps) > 0 {
		amendments, err = drafter.DraftAmendments(ctx, gaps, policyDocs, orgContext)
		if err != nil {
			return fmt.Errorf("amendment drafting failed: %w", err)
		}
	}

	if records != nil {
		if err := records.SaveGaps(ctx, gaps); err != nil {
			return fmt.Errorf("persisting gaps: %w", err)
		}
		if len(amendments) > 0 {
			if err := records.SaveAmendments(ctx, amendments); err != nil {
				return fmt.Errorf("persisting amendments: %w", err)
			}
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Regulation string                 `json:"regulation"`
			Gaps       []extraction.Gap       `json:"gaps"`
			Amendments []extraction.Amendment `json:"amendments"`
		}{Regulation: title, Gaps: gaps, Amendments: amendments})
	}

	fmt.Printf("Regulation: %s\n", title)
	fmt.Printf("  Policies retrieved: %d\n\n", len(policies))
	fmt.Printf("Gaps identified: %d\n", len(gaps))
	for i, gap := range gaps {
		printGap(i+1, gap)
	}
	if len(amendments) > 0 {
		fmt.Printf("\nAmendments drafted: %d\n", len(amendments))
		for i, amd := range amendments {
			printAmendment(i+1, amd)
		}
	}
	return nil
}
