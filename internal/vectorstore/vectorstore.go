// Package vectorstore retrieves supplementary context snippets for content
// generation from a hosted vector-search collection. The client is an
// explicit object constructed once at startup and passed to every component
// that needs retrieval; when credentials are absent the feature silently
// degrades to empty results.
package vectorstore

import "context"

// Snippet is one retrieved context fragment with optional metadata.
type Snippet struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Retriever provides free-text context retrieval for the generation stage.
type Retriever interface {
	// Retrieve returns up to limit snippets relevant to the query.
	// A failure must never abort the caller: an empty slice with an error
	// is an acceptable fallback input to any prompt.
	Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error)

	// Enabled reports whether the retriever has working credentials.
	Enabled() bool
}

// disabledRetriever is used when no credentials are configured. Every call
// returns an empty result without touching the network.
type disabledRetriever struct{}

func (disabledRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error) {
	return nil, nil
}

func (disabledRetriever) Enabled() bool { return false }

// Disabled returns a retriever that always yields empty results.
func Disabled() Retriever {
	return disabledRetriever{}
}
