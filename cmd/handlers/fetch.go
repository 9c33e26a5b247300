package handlers

import (
	"fmt"

	"cardiobrief/internal/config"
	"cardiobrief/internal/feeds"
	"cardiobrief/internal/fetch"
	"cardiobrief/internal/logger"

	"github.com/spf13/cobra"
)

// NewFetchCmd creates the fetch command for pulling journal feeds
func NewFetchCmd() *cobra.Command {
	var scrapeAbstracts bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new articles from configured journal feeds",
		Long: `Fetch pulls every configured journal RSS/Atom feed, normalizes the
entries, optionally scrapes missing abstracts from the article pages, and
stores new articles for later triage.

Examples:
  # Pull all configured feeds
  cardiobrief fetch

  # Skip the abstract scraping pass
  cardiobrief fetch --scrape-abstracts=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := cmd.Context()

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			sources := cfg.Feeds.Sources
			if len(sources) == 0 {
				sources = config.DefaultFeedSources()
			}

			fetcher := feeds.NewFetcher(cfg.Feeds.UserAgent, cfg.FeedTimeout(), cfg.Feeds.MaxItemsPerFeed)
			articles := fetcher.FetchAll(ctx, sources)

			scraper := fetch.NewScraper(cfg.Feeds.UserAgent, cfg.FeedTimeout())

			stored, skipped := 0, 0
			for _, article := range articles {
				exists, err := db.HasArticle(article.URL)
				if err != nil {
					logger.Error("Failed to check article", err, "url", article.URL)
					continue
				}
				if exists {
					skipped++
					continue
				}

				if scrapeAbstracts && article.Abstract == "" {
					scraper.FillAbstract(ctx, article)
				}

				if err := db.SaveArticle(article); err != nil {
					logger.Error("Failed to store article", err, "url", article.URL)
					continue
				}
				stored++
			}

			fmt.Printf("Fetched %d articles: %d new, %d already known\n", len(articles), stored, skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&scrapeAbstracts, "scrape-abstracts", true, "Scrape article pages for missing abstracts")

	return cmd
}
