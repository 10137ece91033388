// Package llm wraps the external chat-completions API used by the
// prompt analyzer, the intent classifier, and the responders. All
// calls go through one pooled client with explicit timeouts; timeout
// and malformed-output are surfaced as distinct error kinds so callers
// can pick the right fallback.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/crosslinehq/bastion/pkg/httputil"
)

// Sentinel errors for the two failure kinds callers must distinguish:
// a timed-out call and a response the model produced but we cannot use.
var (
	ErrTimeout         = errors.New("llm: request timed out")
	ErrMalformedOutput = errors.New("llm: malformed model output")
)

// Provider selects the backend service.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
	ProviderGroq       Provider = "groq"
	ProviderCustom     Provider = "custom"
)

// maxConcurrentCalls bounds in-flight LLM requests across the process.
const maxConcurrentCalls = 16

// Config holds the provider settings, read once at startup.
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string // optional override
}

// Client is a chat-completions HTTP client. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	sem        *httputil.Semaphore
	provider   Provider
	baseURL    string
	apiKey     string
	model      string
}

// NewClient builds a client for the configured provider.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case ProviderOllama:
			baseURL = "http://localhost:11434/v1"
		case ProviderGroq:
			baseURL = "https://api.groq.com/openai/v1"
		default:
			baseURL = "https://openrouter.ai/api/v1"
		}
	}

	return &Client{
		httpClient: httputil.SlowClient(),
		sem:        httputil.NewSemaphore(maxConcurrentCalls),
		provider:   cfg.Provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

// ChatMessage is one turn of a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	System      string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

type chatCompletionBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat-completion request and returns the model's
// text. The context carries the deadline; a deadline hit maps to
// ErrTimeout, an unusable response body to ErrMalformedOutput.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" && c.provider != ProviderOllama && c.provider != ProviderCustom {
		return "", fmt.Errorf("llm: API key not configured for provider %s", c.provider)
	}

	if err := c.sem.Acquire(ctx); err != nil {
		return "", classifyTransportError(err)
	}
	defer c.sem.Release()

	msgs := make([]ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, req.Messages...)

	body, err := json.Marshal(chatCompletionBody{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer httputil.DrainAndClose(resp.Body)

	// Providers are external and untrusted; cap the body read.
	respBody, err := httputil.ReadResponseBody(resp.Body, 2*1024*1024)
	if err != nil {
		return "", classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: API error %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedOutput)
	}

	return parsed.Choices[0].Message.Content, nil
}

// classifyTransportError maps deadline and timeout failures onto
// ErrTimeout so callers can branch with errors.Is.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("llm: request failed: %w", err)
}

// ExtractJSON trims a model response down to its outermost JSON
// object, tolerating markdown fences and prose around it.
func ExtractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
