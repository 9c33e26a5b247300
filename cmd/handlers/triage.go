package handlers

import (
	"fmt"

	"cardiobrief/internal/config"
	"cardiobrief/internal/logger"
	"cardiobrief/internal/triage"

	"github.com/spf13/cobra"
)

// NewTriageCmd creates the triage command for article classification
func NewTriageCmd() *cobra.Command {
	var (
		minConfidence int
		maxArticles   int
		retriage      bool
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify pending articles into B2C, B2B or SKIP",
		Long: `Triage classifies each stored article with one LLM call and routes it
into a bucket. Results below the confidence threshold are demoted to SKIP
regardless of the raw classification; acting on a low-confidence call is
worse than skipping it.

Articles are triaged at most once. Use --retriage to explicitly reclassify
articles that already carry a result.

Examples:
  # Triage all pending articles at the default threshold
  cardiobrief triage

  # Stricter confidence gate
  cardiobrief triage --min-confidence 7

  # Reclassify everything
  cardiobrief triage --retriage`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := cmd.Context()

			gateway := newGateway(cfg)
			if gateway.Disabled() {
				return fmt.Errorf("triage requires an LLM API key; set OPENROUTER_API_KEY")
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if minConfidence == 0 {
				minConfidence = cfg.Triage.MinConfidence
			}

			articles, err := db.ListPending(maxArticles)
			if err != nil {
				return fmt.Errorf("listing pending articles: %w", err)
			}
			if retriage {
				triaged, err := db.ListTriaged(maxArticles)
				if err != nil {
					return fmt.Errorf("listing triaged articles: %w", err)
				}
				articles = append(articles, triaged...)
			}

			if len(articles) == 0 {
				fmt.Println("No articles to triage.")
				return nil
			}

			triager := triage.New(gateway, cfg.Triage.MaxTokens, cfg.Triage.AbstractBudget)
			buckets := triager.TriageAll(ctx, articles, minConfidence)

			// Persistence is single-threaded, after all triage calls finish.
			for _, article := range articles {
				if err := db.SaveArticle(article); err != nil {
					logger.Error("Failed to store triage result", err, "url", article.URL)
				}
			}

			fmt.Printf("\nTriaged %d articles: %d B2C, %d B2B, %d skipped (min confidence %d)\n",
				len(articles), len(buckets.B2C), len(buckets.B2B), len(buckets.Skip), minConfidence)
			return nil
		},
	}

	cmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "Minimum confidence to act on a classification (1-10, default from config)")
	cmd.Flags().IntVar(&maxArticles, "max-articles", 0, "Maximum number of articles to triage (0 = no limit)")
	cmd.Flags().BoolVar(&retriage, "retriage", false, "Reclassify articles that already carry a triage result")

	return cmd
}
