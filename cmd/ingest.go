package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reglens/reglens/internal/chunker"
	"github.com/reglens/reglens/internal/index"
	"github.com/reglens/reglens/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [patterns...]",
	Short: "Chunk, embed and index documents",
	Long: `Reads text documents matched by the given glob patterns (doublestar
syntax, e.g. "corpus/**/*.txt"), splits them into sentence-aligned chunks,
embeds each chunk and writes the results to the configured index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("type", index.DocTypeRegulatory, "document type: regulatory_document or internal_policy")
	ingestCmd.Flags().String("title", "", "document title (single-file ingests only; defaults to the file name)")
	ingestCmd.Flags().String("id", "", "document id (single-file ingests only; defaults to a hash of the path)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	docType, _ := cmd.Flags().GetString("type")
	title, _ := cmd.Flags().GetString("title")
	docID, _ := cmd.Flags().GetString("id")

	docType, err := canonicalDocType(docType)
	if err != nil {
		return err
	}

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files matched.")
		return nil
	}
	if len(files) > 1 && (title != "" || docID != "") {
		return fmt.Errorf("--title and --id apply to single-file ingests only (%d files matched)", len(files))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	idx, err := openIndex(ctx, cfg, false)
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap), embedder, idx)

	var bar *progressbar.ProgressBar
	if len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	start := time.Now()
	var totalChunks, totalIndexed, totalFailed, failedFiles int
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: reading %s: %v\n", path, err)
			failedFiles++
			advance(bar)
			continue
		}

		meta := ingest.DocumentMetadata{
			DocumentID:     docID,
			Title:          title,
			Type:           docType,
			SourceLocation: path,
		}
		if meta.Title == "" {
			meta.Title = docTitle(path)
		}

		result, err := pipeline.IngestDocument(ctx, string(data), meta)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ingesting %s: %v\n", path, err)
			failedFiles++
			advance(bar)
			continue
		}

		totalChunks += result.Chunks
		totalIndexed += result.Indexed
		totalFailed += len(result.Failed)
		for _, f := range result.Failed {
			fmt.Fprintf(os.Stderr, "Warning: %s chunk %s: %v\n", path, f.ChunkID, f.Err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "%s: %d chunks, %d indexed (%s)\n", path, result.Chunks, result.Indexed, result.Duration.Round(time.Millisecond))
		}
		advance(bar)
	}
	if bar != nil {
		bar.Finish()
	}

	if err := persistIndex(ctx, cfg, idx); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}

	fmt.Println("Ingest complete!")
	fmt.Printf("  Files:          %d (%d failed)\n", len(files), failedFiles)
	fmt.Printf("  Chunks:         %d\n", totalChunks)
	fmt.Printf("  Indexed:        %d (%d failed)\n", totalIndexed, totalFailed)
	fmt.Printf("  Duration:       %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// expandPatterns resolves doublestar glob patterns into a sorted, de-duplicated
// file list. A pattern that names an existing file directly is taken as-is.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
			add(pattern)
			continue
		}

		base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(os.DirFS(base), rest)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			path := filepath.Join(base, m)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			add(path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// canonicalDocType accepts the full type names plus short aliases.
func canonicalDocType(t string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case index.DocTypeRegulatory, "regulatory", "regulation":
		return index.DocTypeRegulatory, nil
	case index.DocTypeInternalPolicy, "policy", "internal":
		return index.DocTypeInternalPolicy, nil
	default:
		return "", fmt.Errorf("unknown document type %q (expected %s or %s)", t, index.DocTypeRegulatory, index.DocTypeInternalPolicy)
	}
}

func docTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Add(1)
	}
}
