package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LLMClient calls the language-model collaborator's HTTP surface
// (POST /generate; the /chat endpoint is not used). Constructed once at startup and
// held for process lifetime, mirroring the teacher's client-handle shape
// (pkg/llm/client.go) translated from gRPC to plain net/http per §6's
// explicit wire contract.
type LLMClient struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewLLMClient constructs a client against baseURL. deadline bounds every
// Generate call (default 60s per §4.1).
func NewLLMClient(baseURL, model string, temperature float64, maxTokens int, deadline time.Duration, logger *slog.Logger) *LLMClient {
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	return &LLMClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: deadline},
		logger:      logger,
	}
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	System      string  `json:"system,omitempty"`
	Stream      bool    `json:"stream"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate calls POST {base}/generate with the assembled planning prompt
// and returns the raw model text for C2 to parse. Fails with ErrUnavailable
// on transport error, ErrUpstream on non-2xx or malformed body — the
// pipeline surfaces either as {status: error, reason: "llm_unavailable"}.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("llm generate unreachable", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}

	return out.Text, nil
}

// HealthCheck reports whether the LLM collaborator is reachable, consumed
// by the readiness probe (GET /health/ready).
func (c *LLMClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}

// Close releases client resources. http.Client needs none, but Close keeps
// the three collaborator clients uniform for C7's lifecycle ordering.
func (c *LLMClient) Close() error { return nil }
