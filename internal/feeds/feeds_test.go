package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardiobrief/internal/config"
	"cardiobrief/internal/core"
	"github.com/mmcdole/gofeed"
)

func rssFeed(items string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Journal</title>%s</channel></rss>`, items)
}

func rssItem(title, link, guid, description string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><guid>%s</guid><description>%s</description><pubDate>Mon, 03 Jun 2024 09:00:00 GMT</pubDate></item>`,
		title, link, guid, description)
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchConvertsItems(t *testing.T) {
	body := rssFeed(rssItem(
		"GLP-1 agonists and heart failure",
		"https://example.org/articles/glp1",
		"https://doi.org/10.1161/CIRC.2024.0001",
		"<p>Randomized trial of GLP-1 agonists.</p>",
	))
	server := serveFeed(t, body)

	fetcher := NewFetcher("cardiobrief-test", 5*time.Second, 50)
	source := config.FeedSource{Name: "Circulation", URL: server.URL, Tier: 1}

	articles, err := fetcher.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}

	article := articles[0]
	if article.Title != "GLP-1 agonists and heart failure" {
		t.Errorf("Expected title preserved, got %q", article.Title)
	}
	if article.Abstract != "Randomized trial of GLP-1 agonists." {
		t.Errorf("Expected cleaned abstract, got %q", article.Abstract)
	}
	if article.DOI != "10.1161/CIRC.2024.0001" {
		t.Errorf("Expected DOI extracted from GUID, got %q", article.DOI)
	}
	if article.Journal != "Circulation" || article.Tier != 1 {
		t.Errorf("Expected source metadata carried over, got %q tier %d", article.Journal, article.Tier)
	}
	if article.ID == "" {
		t.Error("Expected a generated article ID")
	}
	if article.Published.IsZero() {
		t.Error("Expected published date parsed")
	}
}

func TestFetchSkipsIncompleteItems(t *testing.T) {
	body := rssFeed(
		rssItem("", "https://example.org/untitled", "g1", "x") +
			rssItem("Complete item", "https://example.org/complete", "g2", "x"),
	)
	server := serveFeed(t, body)

	fetcher := NewFetcher("", 5*time.Second, 50)
	articles, err := fetcher.Fetch(context.Background(), config.FeedSource{Name: "J", URL: server.URL, Tier: 2})
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Complete item" {
		t.Errorf("Expected only the complete item, got %d articles", len(articles))
	}
}

func TestFetchRespectsMaxPerFeed(t *testing.T) {
	items := ""
	for i := 0; i < 5; i++ {
		items += rssItem(fmt.Sprintf("Article %d", i), fmt.Sprintf("https://example.org/%d", i), fmt.Sprintf("g%d", i), "x")
	}
	server := serveFeed(t, rssFeed(items))

	fetcher := NewFetcher("", 5*time.Second, 2)
	articles, err := fetcher.Fetch(context.Background(), config.FeedSource{Name: "J", URL: server.URL, Tier: 1})
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("Expected per-feed cap of 2, got %d", len(articles))
	}
}

func TestFetchAllDeduplicatesByDOI(t *testing.T) {
	// The same paper appears in both feeds under different URLs but the
	// same DOI; only the first occurrence survives.
	first := serveFeed(t, rssFeed(rssItem("Shared paper", "https://a.example.org/p", "doi:10.1016/j.jacc.2024.01.001", "x")))
	second := serveFeed(t, rssFeed(rssItem("Shared paper mirror", "https://b.example.org/p", "doi:10.1016/J.JACC.2024.01.001", "x")))

	fetcher := NewFetcher("", 5*time.Second, 50)
	articles := fetcher.FetchAll(context.Background(), []config.FeedSource{
		{Name: "A", URL: first.URL, Tier: 1},
		{Name: "B", URL: second.URL, Tier: 2},
	})

	if len(articles) != 1 {
		t.Fatalf("Expected DOI dedupe to keep 1 article, got %d", len(articles))
	}
	if articles[0].Journal != "A" {
		t.Errorf("Expected first occurrence kept, got %q", articles[0].Journal)
	}
}

func TestFetchAllSkipsFailingFeed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	working := serveFeed(t, rssFeed(rssItem("Survivor", "https://example.org/s", "gs", "x")))

	fetcher := NewFetcher("", 5*time.Second, 50)
	articles := fetcher.FetchAll(context.Background(), []config.FeedSource{
		{Name: "Broken", URL: broken.URL, Tier: 1},
		{Name: "Working", URL: working.URL, Tier: 1},
	})

	if len(articles) != 1 || articles[0].Title != "Survivor" {
		t.Errorf("Expected the working feed's article, got %d articles", len(articles))
	}
}

func TestDedupeKey(t *testing.T) {
	withDOI := &core.Article{DOI: "10.1161/ABC.123", URL: "https://example.org/a"}
	if got := dedupeKey(withDOI); got != "doi:10.1161/abc.123" {
		t.Errorf("Expected lowercased DOI key, got %q", got)
	}

	withoutDOI := &core.Article{URL: "https://example.org/a"}
	if got := dedupeKey(withoutDOI); got != "url:https://example.org/a" {
		t.Errorf("Expected URL fallback key, got %q", got)
	}
}

func TestItemToArticleAuthors(t *testing.T) {
	item := &gofeed.Item{
		Title: "Authored",
		Link:  "https://example.org/authored",
		Authors: []*gofeed.Person{
			{Name: "A. Cardiologist"},
			nil,
			{Name: ""},
			{Name: "B. Fellow"},
		},
	}

	article := itemToArticle(item, config.FeedSource{Name: "J", Tier: 1})
	if len(article.Authors) != 2 || article.Authors[0] != "A. Cardiologist" || article.Authors[1] != "B. Fellow" {
		t.Errorf("Expected empty and nil authors dropped, got %v", article.Authors)
	}
}
