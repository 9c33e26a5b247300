package handlers

import (
	"fmt"

	"cardiobrief/internal/config"
	"cardiobrief/internal/core"
	"cardiobrief/internal/generation"
	"cardiobrief/internal/logger"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command for content generation
func NewGenerateCmd() *cobra.Command {
	var maxArticles int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate long-form content for classified articles",
		Long: `Generate produces one piece of long-form prose per classified article:
warm plain-language explainers for B2C articles and terse clinical summaries
for B2B articles. Each prompt is grounded on up to a few context snippets
retrieved from the vector store; retrieval failures fall back to generating
without context.

A failed generation leaves the article's content empty and the batch
continues; the digest stage filters empty content out.

Examples:
  # Generate content for everything classified but not yet written
  cardiobrief generate

  # Only the first ten articles
  cardiobrief generate --max-articles 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := cmd.Context()

			gateway := newGateway(cfg)
			if gateway.Disabled() {
				return fmt.Errorf("generation requires an LLM API key; set OPENROUTER_API_KEY")
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			b2c, err := db.ListClassified(core.ClassB2C, maxArticles)
			if err != nil {
				return fmt.Errorf("listing B2C articles: %w", err)
			}
			b2b, err := db.ListClassified(core.ClassB2B, maxArticles)
			if err != nil {
				return fmt.Errorf("listing B2B articles: %w", err)
			}

			if len(b2c)+len(b2b) == 0 {
				fmt.Println("No classified articles awaiting generation.")
				return nil
			}

			generator := generation.New(gateway, newRetriever(cfg), cfg.Generation.MaxTokens, cfg.Generation.ContextSnippets, cfg.Triage.AbstractBudget)
			tally := generator.GenerateAll(ctx, b2c, b2b)

			for _, article := range append(b2c, b2b...) {
				if err := db.SaveArticle(article); err != nil {
					logger.Error("Failed to store generated content", err, "url", article.URL)
				}
			}

			fmt.Printf("\nGenerated content for %d articles (%d failed)\n", tally.Succeeded, tally.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxArticles, "max-articles", 0, "Maximum articles per bucket (0 = no limit)")

	return cmd
}
