package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"cardiobrief/internal/analysis"
	"cardiobrief/internal/config"
	"cardiobrief/internal/core"

	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command for chunked comment analysis
func NewAnalyzeCmd() *cobra.Command {
	var (
		input   string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze audience comments for questions and pain points",
		Long: `Analyze reads a JSON array of audience comments and extracts the
recurring questions and pain points via a two-level map-reduce: comments are
split into prompt-sized chunks analyzed concurrently, then one synthesis
call turns the aggregate into a narrative summary. A failed chunk
contributes nothing instead of aborting the run.

The input file is a JSON array of objects:
  [{"author": "...", "text": "...", "likes": 3}, ...]

Examples:
  # Analyze scraped comments
  cardiobrief analyze --input comments.json

  # More concurrent LLM calls
  cardiobrief analyze --input comments.json --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := cmd.Context()

			gateway := newGateway(cfg)
			if gateway.Disabled() {
				return fmt.Errorf("analysis requires an LLM API key; set OPENROUTER_API_KEY")
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading comments file: %w", err)
			}

			var comments []core.Comment
			if err := json.Unmarshal(data, &comments); err != nil {
				return fmt.Errorf("parsing comments file: %w", err)
			}
			if len(comments) == 0 {
				fmt.Println("No comments to analyze.")
				return nil
			}

			if workers == 0 {
				workers = cfg.Analysis.Workers
			}

			analyzer := analysis.New(gateway, cfg.Analysis.ChunkSize, workers, cfg.Analysis.QuickThreshold, cfg.Analysis.MaxTokens)
			synthesis := analyzer.Analyze(ctx, comments)

			printSynthesis(synthesis)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to a JSON file of comments (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent chunk analysis calls (default from config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// printSynthesis writes the analysis result as a readable report.
func printSynthesis(s core.Synthesis) {
	fmt.Printf("\nAnalyzed %d comments in %d chunk(s)", s.CommentCount, s.ChunkCount)
	if s.FailedChunks > 0 {
		fmt.Printf(" (%d chunk(s) contributed nothing)", s.FailedChunks)
	}
	fmt.Println()

	if len(s.Questions) > 0 {
		fmt.Println("\nTop questions:")
		printCounts(s.Questions, 10)
	}
	if len(s.PainPoints) > 0 {
		fmt.Println("\nTop pain points:")
		printCounts(s.PainPoints, 10)
	}
	if s.Narrative != "" {
		fmt.Println("\nSummary:")
		fmt.Println(s.Narrative)
	}
}

func printCounts(entries map[string]int, limit int) {
	type kv struct {
		text  string
		count int
	}
	sorted := make([]kv, 0, len(entries))
	for text, count := range entries {
		sorted = append(sorted, kv{text, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].text < sorted[j].text
	})
	for i, entry := range sorted {
		if i >= limit {
			break
		}
		fmt.Printf("  %2dx %s\n", entry.count, entry.text)
	}
}
