// Package fetch scrapes article pages for abstracts when the feed entry
// carried none.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cardiobrief/internal/core"
	"cardiobrief/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

// abstractSelectors are tried in order against the fetched page. Publisher
// sites vary; meta tags are the most reliable and go first.
var abstractSelectors = []string{
	`meta[name="citation_abstract"]`,
	`meta[name="description"]`,
	`meta[property="og:description"]`,
	`section.abstract`,
	`div.abstract`,
	`div#abstract`,
	`p.abstract`,
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Scraper fetches article pages over HTTP.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
}

// NewScraper creates an abstract scraper with a bounded request timeout.
func NewScraper(userAgent string, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// FillAbstract fetches the article page and fills in the abstract when the
// article has none. Failure leaves the abstract empty and is never fatal.
func (s *Scraper) FillAbstract(ctx context.Context, article *core.Article) {
	if article.Abstract != "" || article.URL == "" {
		return
	}

	abstract, err := s.scrape(ctx, article.URL)
	if err != nil {
		logger.Debug("Abstract scrape failed", "url", article.URL, "reason", err.Error())
		return
	}
	article.Abstract = abstract
}

// scrape fetches the page and tries each selector in order.
func (s *Scraper) scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	return ExtractFromDocument(doc), nil
}

// ExtractFromDocument tries each abstract selector in order and returns the
// first non-empty cleaned result.
func ExtractFromDocument(doc *goquery.Document) string {
	for _, selector := range abstractSelectors {
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}

		var raw string
		if strings.HasPrefix(selector, "meta") {
			raw, _ = selection.Attr("content")
		} else {
			raw = selection.Text()
		}

		raw = strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
		if raw != "" {
			return raw
		}
	}
	return ""
}
