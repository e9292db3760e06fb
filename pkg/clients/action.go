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

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// ExecuteResult is the action-exec collaborator's response shape for
// POST /execute (§6).
type ExecuteResult struct {
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ValidateResult is the action-exec collaborator's response shape for
// POST /validate (§6).
type ValidateResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ActionClient calls the action-execution collaborator (§4.1, §6). C4
// layers its own, shorter per-action timeout on top of this client's
// outer deadline.
type ActionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewActionClient constructs a client against baseURL. deadline bounds
// Execute calls at this level (default 60s); Validate calls always use a
// fixed 5s deadline regardless of deadline, per §4.1.
func NewActionClient(baseURL string, deadline time.Duration, logger *slog.Logger) *ActionClient {
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	return &ActionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: deadline},
		logger:     logger,
	}
}

// Execute calls POST {base}/execute with the action object as body.
func (c *ActionClient) Execute(ctx context.Context, action plan.Action) (ExecuteResult, error) {
	var out ExecuteResult
	if err := c.post(ctx, "/execute", action, &out); err != nil {
		return ExecuteResult{}, err
	}
	return out, nil
}

// Validate calls POST {base}/validate with the action object as body,
// under a fixed 5s deadline independent of the client's Execute deadline.
func (c *ActionClient) Validate(ctx context.Context, action plan.Action) (ValidateResult, error) {
	vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out ValidateResult
	if err := c.post(vctx, "/validate", action, &out); err != nil {
		return ValidateResult{}, err
	}
	return out, nil
}

func (c *ActionClient) post(ctx context.Context, path string, in interface{}, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}

// HealthCheck reports whether the action-exec collaborator is reachable.
func (c *ActionClient) HealthCheck(ctx context.Context) error {
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

// Close releases client resources.
func (c *ActionClient) Close() error { return nil }
