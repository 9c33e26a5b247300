package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardiobrief/internal/logger"
)

// ErrUnavailable is returned by every call on a client constructed without
// an API key. Callers treat it like any other gateway failure: log it and
// carry on with an empty result.
var ErrUnavailable = errors.New("llm gateway unavailable: no API key configured")

// Client is a single-attempt gateway to an OpenRouter-compatible
// chat-completion endpoint. Each call is one HTTP round trip bounded by the
// configured timeout; there is no retry loop.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	disabled    bool
}

// Options configures a new Client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a gateway client. A missing API key is not an error:
// the client is constructed in a disabled state, logged once, and every
// subsequent call returns ErrUnavailable immediately.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://openrouter.ai/api/v1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}

	c := &Client{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}

	if c.apiKey == "" {
		c.disabled = true
		logger.Warn("LLM gateway disabled: no API key configured, all completions will be skipped")
	}

	return c
}

// Disabled reports whether the client was constructed without credentials.
func (c *Client) Disabled() bool {
	return c.disabled
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete issues one chat completion and returns the raw response text.
// Any failure (missing credentials, timeout, non-2xx status, malformed body,
// empty choices) comes back as an error; callers must treat that as an empty
// result, never as fatal.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.disabled {
		return "", ErrUnavailable
	}
	if userPrompt == "" {
		return "", fmt.Errorf("user prompt must not be empty")
	}
	if maxTokens <= 0 {
		return "", fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}

	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing completion response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("completion endpoint error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
