// Package feeds fetches journal RSS/Atom feeds and converts their entries
// into pipeline articles.
package feeds

import (
	"context"
	"strings"
	"time"

	"cardiobrief/internal/config"
	"cardiobrief/internal/core"
	"cardiobrief/internal/logger"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// Fetcher pulls configured journal feeds and normalizes their entries.
type Fetcher struct {
	parser     *gofeed.Parser
	timeout    time.Duration
	maxPerFeed int
}

// NewFetcher creates a feed fetcher.
func NewFetcher(userAgent string, timeout time.Duration, maxPerFeed int) *Fetcher {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxPerFeed <= 0 {
		maxPerFeed = 50
	}
	return &Fetcher{
		parser:     parser,
		timeout:    timeout,
		maxPerFeed: maxPerFeed,
	}
}

// FetchAll pulls every source sequentially and returns the deduplicated
// article list. A failing feed is logged and skipped; it never aborts the
// run.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.FeedSource) []*core.Article {
	var articles []*core.Article
	seen := make(map[string]bool)

	for _, source := range sources {
		fetched, err := f.Fetch(ctx, source)
		if err != nil {
			logger.Error("Feed fetch failed", err, "feed", source.Name, "url", source.URL)
			continue
		}
		for _, article := range fetched {
			key := dedupeKey(article)
			if seen[key] {
				continue
			}
			seen[key] = true
			articles = append(articles, article)
		}
	}

	logger.Info("Feed aggregation complete", "feeds", len(sources), "articles", len(articles))
	return articles
}

// Fetch pulls one feed and converts its items.
func (f *Fetcher) Fetch(ctx context.Context, source config.FeedSource) ([]*core.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, err
	}

	var articles []*core.Article
	for i, item := range feed.Items {
		if i >= f.maxPerFeed {
			break
		}
		article := itemToArticle(item, source)
		if article.Title == "" || article.URL == "" {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// itemToArticle normalizes one feed entry.
func itemToArticle(item *gofeed.Item, source config.FeedSource) *core.Article {
	published := time.Time{}
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	var authors []string
	for _, author := range item.Authors {
		if author != nil && author.Name != "" {
			authors = append(authors, author.Name)
		}
	}

	return &core.Article{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(item.Title),
		Abstract:    ExtractAbstract(item),
		Journal:     source.Name,
		Authors:     authors,
		URL:         strings.TrimSpace(item.Link),
		DOI:         extractDOI(item),
		Published:   published,
		Tier:        source.Tier,
		DateFetched: time.Now().UTC(),
	}
}

// dedupeKey prefers the DOI and falls back to the URL.
func dedupeKey(article *core.Article) string {
	if article.DOI != "" {
		return "doi:" + strings.ToLower(article.DOI)
	}
	return "url:" + article.URL
}
