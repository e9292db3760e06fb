package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// MemoryClient calls the vector-memory collaborator's ChromaDB-shaped HTTP
// surface (POST .../query, POST .../add per §6). Search degrades to an
// empty result on any failure rather than raising into the pipeline (I4,
// §4.1) — memory is an optimization, never a dependency the pipeline can
// fail on.
type MemoryClient struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewMemoryClient constructs a client against baseURL/collection. deadline
// bounds every Search/Store call (default 10s per §4.1).
func NewMemoryClient(baseURL, collection string, deadline time.Duration, logger *slog.Logger) *MemoryClient {
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	return &MemoryClient{
		baseURL:    baseURL,
		collection: collection,
		httpClient: &http.Client{Timeout: deadline},
		logger:     logger,
	}
}

type queryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
}

type queryResponse struct {
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
}

// Search calls POST {base}/api/v1/collections/{collection}/query and zips
// the ChromaDB-shaped documents/metadatas arrays pairwise into MemoryHits.
// Never returns an error: any failure logs at warn and yields an empty
// slice, matching the original source's absorb-and-continue behavior.
func (c *MemoryClient) Search(ctx context.Context, query string, limit int) []plan.MemoryHit {
	body, err := json.Marshal(queryRequest{QueryTexts: []string{query}, NResults: limit})
	if err != nil {
		c.logger.Warn("memory search: encode failed", slog.String("error", err.Error()))
		return nil
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("memory search: request build failed", slog.String("error", err.Error()))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("memory search unreachable", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("memory search upstream error", slog.Int("status", resp.StatusCode))
		return nil
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("memory search malformed response", slog.String("error", err.Error()))
		return nil
	}
	if len(out.Documents) == 0 {
		return nil
	}

	docs := out.Documents[0]
	var metas []map[string]interface{}
	if len(out.Metadatas) > 0 {
		metas = out.Metadatas[0]
	}

	hits := make([]plan.MemoryHit, 0, len(docs))
	for i, doc := range docs {
		meta := map[string]interface{}{}
		if i < len(metas) && metas[i] != nil {
			meta = metas[i]
		}
		hits = append(hits, plan.MemoryHit{Content: doc, Metadata: meta})
	}
	return hits
}

type addRequest struct {
	IDs       []string                 `json:"ids"`
	Documents []string                 `json:"documents"`
	Metadatas []map[string]interface{} `json:"metadatas"`
}

// Store calls POST {base}/api/v1/collections/{collection}/add, best-effort.
// Called fire-and-forget by the pipeline's memory-store stage (I4); the
// returned bool is for the synchronous /api/memory/store HTTP handler,
// which does want to know whether the write landed.
func (c *MemoryClient) Store(ctx context.Context, id, content string, metadata map[string]interface{}) bool {
	body, err := json.Marshal(addRequest{
		IDs:       []string{id},
		Documents: []string{content},
		Metadatas: []map[string]interface{}{metadata},
	})
	if err != nil {
		c.logger.Warn("memory store: encode failed", slog.String("error", err.Error()))
		return false
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s/add", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("memory store: request build failed", slog.String("error", err.Error()))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("memory store unreachable", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// HealthCheck reports whether the memory collaborator is reachable.
func (c *MemoryClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/heartbeat", nil)
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
func (c *MemoryClient) Close() error { return nil }
