package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/analysis"
	"github.com/reglens/reglens/internal/config"
	"github.com/reglens/reglens/internal/extraction"
	"github.com/reglens/reglens/internal/search"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [topic]",
	Short: "Run a compliance gap analysis for a topic",
	Long: `Retrieves regulatory documents and internal policies relevant to the
topic from the index, asks the configured LLM to identify compliance gaps,
and optionally drafts policy amendments for them. Records are saved to the
configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("size", 0, "documents to retrieve per corpus (overrides config)")
	analyzeCmd.Flags().Bool("draft", false, "also draft policy amendments for identified gaps")
	analyzeCmd.Flags().String("context", "", "additional analysis context")
	analyzeCmd.Flags().String("org-context", "", "organization background for drafting")
	analyzeCmd.Flags().Bool("json", false, "output the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	topic := args[0]

	size, _ := cmd.Flags().GetInt("size")
	draft, _ := cmd.Flags().GetBool("draft")
	extraContext, _ := cmd.Flags().GetString("context")
	orgContext, _ := cmd.Flags().GetString("org-context")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if size <= 0 {
		size = cfg.Search.DefaultSize
	}

	service, cleanup, err := buildAnalysisService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := service.Run(ctx, analysis.Request{
		Topic:           topic,
		Context:         extraContext,
		Size:            size,
		DraftAmendments: draft,
		OrgContext:      orgContext,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}

// buildAnalysisService wires the full read path from config. The returned
// cleanup closes the record store.
func buildAnalysisService(ctx context.Context, cfg *config.Config) (*analysis.Service, func(), error) {
	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := createProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	idx, err := openIndex(ctx, cfg, true)
	if err != nil {
		return nil, nil, err
	}

	records, cleanup, err := openRecords(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := extractionOptions(cfg)
	searcher := search.NewSearcher(embedder, idx, searchOptions(cfg))
	analyzer := extraction.NewAnalyzer(provider, cfg.Model, opts)
	drafter := extraction.NewDrafter(provider, cfg.Model, opts)

	return analysis.NewService(searcher, analyzer, drafter, records), cleanup, nil
}

func extractionOptions(cfg *config.Config) extraction.Options {
	return extraction.Options{
		MaxAnalysisDocs:  cfg.Extraction.MaxAnalysisDocs,
		AnalysisDocChars: cfg.Extraction.AnalysisDocChars,
		MaxDraftingDocs:  cfg.Extraction.MaxDraftingDocs,
		DraftingDocChars: cfg.Extraction.DraftingDocChars,
		DraftBatchSize:   cfg.Extraction.DraftBatchSize,
		MaxTokens:        cfg.Extraction.MaxTokens,
		Temperature:      cfg.Extraction.Temperature,
	}
}

func printReport(report *analysis.Report) {
	fmt.Printf("Gap analysis: %s\n", report.Topic)
	fmt.Printf("  Regulatory documents: %d\n", report.RegulatoryDocs)
	fmt.Printf("  Internal policies:    %d\n", report.PolicyDocs)
	fmt.Printf("  Duration:             %s\n\n", report.Duration.Round(time.Millisecond))

	if report.RegulatoryDocs == 0 {
		fmt.Println("No regulatory documents matched the topic. Ingest regulatory content first.")
		return
	}

	fmt.Printf("Gaps identified: %d", len(report.Gaps))
	if report.GapErrors > 0 {
		fmt.Printf(" (%d parse failures)", report.GapErrors)
	}
	fmt.Println()
	for i, gap := range report.Gaps {
		printGap(i+1, gap)
	}

	if len(report.Amendments) > 0 {
		fmt.Printf("\nAmendments drafted: %d", len(report.Amendments))
		if report.AmendmentErrors > 0 {
			fmt.Printf(" (%d parse failures)", report.AmendmentErrors)
		}
		fmt.Println()
		for i, amd := range report.Amendments {
			printAmendment(i+1, amd)
		}
	}
}

func printGap(rank int, gap extraction.Gap) {
	fmt.Printf("\n  %d. [%s/%s] %s (%s)\n", rank, gap.Severity, gap.RiskLevel, gap.Title, gap.GapID)
	fmt.Printf("     Type: %s\n", gap.GapType)
	if gap.RegulatoryReference != "" {
		fmt.Printf("     Regulation: %s\n", gap.RegulatoryReference)
	}
	if gap.PolicyReference != "" {
		fmt.Printf("     Policy: %s\n", gap.PolicyReference)
	}
	if gap.Description != "" {
		fmt.Printf("     %s\n", truncate(gap.Description, 300))
	}
	if gap.RecommendedAction != "" {
		fmt.Printf("     Recommended: %s\n", truncate(gap.RecommendedAction, 200))
	}
}

func printAmendment(rank int, amd extraction.Amendment) {
	fmt.Printf("\n  %d. [%s] %s (%s, for %s)\n", rank, amd.Priority, amd.AmendmentTitle, amd.AmendmentID, amd.GapID)
	fmt.Printf("     Type: %s  Target: %s  Effective: %s\n", amd.AmendmentType, amd.TargetPolicy, amd.EffectiveDateRecommendation)
	if amd.AmendmentText != "" {
		fmt.Printf("     %s\n", truncate(amd.AmendmentText, 300))
	}
	if amd.Rationale != "" {
		fmt.Printf("     Rationale: %s\n", truncate(amd.Rationale, 200))
	}
}
