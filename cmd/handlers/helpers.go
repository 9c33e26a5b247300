package handlers

import (
	"fmt"

	"cardiobrief/internal/config"
	"cardiobrief/internal/llm"
	"cardiobrief/internal/store"
	"cardiobrief/internal/vectorstore"
)

// newGateway builds the LLM client from configuration. The client may be
// disabled; commands that require a working gateway check Disabled().
func newGateway(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLMTimeout(),
	})
}

// newRetriever builds the vector-search client; missing credentials yield
// the disabled retriever.
func newRetriever(cfg *config.Config) vectorstore.Retriever {
	return vectorstore.NewAstraClient(vectorstore.AstraOptions{
		Endpoint:   cfg.Vector.Endpoint,
		Token:      cfg.Vector.Token,
		Collection: cfg.Vector.Collection,
		Timeout:    cfg.VectorTimeout(),
		CacheTTL:   cfg.VectorCacheTTL(),
	})
}

// openStore opens the pipeline state database under the configured data dir.
func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening pipeline store: %w", err)
	}
	return s, nil
}
