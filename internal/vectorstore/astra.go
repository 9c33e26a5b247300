package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardiobrief/internal/logger"

	gocache "github.com/patrickmn/go-cache"
)

// AstraClient queries an Astra DB Data API collection with free-text
// vectorize search. Results are cached in-process so repeated identical
// queries within one run cost a single round trip.
type AstraClient struct {
	endpoint   string
	token      string
	collection string
	httpClient *http.Client
	cache      *gocache.Cache
}

// AstraOptions configures a new AstraClient.
type AstraOptions struct {
	Endpoint   string
	Token      string
	Collection string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// NewAstraClient creates a retriever against an Astra DB collection. Missing
// credentials are not an error: the returned retriever is the disabled one,
// logged once, and retrieval degrades to empty context.
func NewAstraClient(opts AstraOptions) Retriever {
	if opts.Endpoint == "" || opts.Token == "" {
		logger.Warn("Vector search disabled: no endpoint or token configured, generation will run without retrieved context")
		return Disabled()
	}
	if opts.Collection == "" {
		opts.Collection = "cardiology_articles"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	return &AstraClient{
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		token:      opts.Token,
		collection: opts.Collection,
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// Enabled reports whether the client holds working credentials.
func (c *AstraClient) Enabled() bool { return true }

type findRequest struct {
	Find findClause `json:"find"`
}

type findClause struct {
	Sort    map[string]string `json:"sort"`
	Options findOptions       `json:"options"`
}

type findOptions struct {
	Limit             int  `json:"limit"`
	IncludeSimilarity bool `json:"includeSimilarity"`
}

type findResponse struct {
	Data struct {
		Documents []struct {
			Text     string `json:"text"`
			Source   string `json:"source"`
			Metadata struct {
				// some collections nest the source one level down
				Source string `json:"source"`
			} `json:"metadata"`
			Similarity float64 `json:"$similarity"`
		} `json:"documents"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Retrieve runs a vectorize find against the collection. Failures come back
// as an error alongside an empty slice; callers continue with no context.
func (c *AstraClient) Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%d|%s", limit, query)
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.([]Snippet), nil
	}

	reqBody := findRequest{
		Find: findClause{
			Sort:    map[string]string{"$vectorize": query},
			Options: findOptions{Limit: limit, IncludeSimilarity: true},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling find request: %w", err)
	}

	url := fmt.Sprintf("%s/api/json/v1/default_keyspace/%s", c.endpoint, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating find request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading vector search response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vector search returned status %d", resp.StatusCode)
	}

	var parsed findResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parsing vector search response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("vector search error: %s", parsed.Errors[0].Message)
	}

	snippets := make([]Snippet, 0, len(parsed.Data.Documents))
	for _, doc := range parsed.Data.Documents {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		source := doc.Source
		if source == "" {
			source = doc.Metadata.Source
		}
		snippets = append(snippets, Snippet{
			Text:   text,
			Source: source,
			Score:  doc.Similarity,
		})
	}

	c.cache.Set(cacheKey, snippets, gocache.DefaultExpiration)
	return snippets, nil
}
