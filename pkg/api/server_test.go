package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/orchestrator/pkg/clients"
	"github.com/codeready-toolchain/orchestrator/pkg/config"
	"github.com/codeready-toolchain/orchestrator/pkg/executor"
	"github.com/codeready-toolchain/orchestrator/pkg/pipeline"
	"github.com/codeready-toolchain/orchestrator/pkg/plan"
	"github.com/codeready-toolchain/orchestrator/pkg/safety"
	"github.com/codeready-toolchain/orchestrator/pkg/session"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newTestServer wires a full stack against httptest upstreams standing in
// for the LLM, memory, and action-exec collaborators, mirroring how C7
// assembles the real process at startup.
func newTestServer(t *testing.T, llmUpstream, memoryUpstream, actionUpstream *httptest.Server) *Server {
	t.Helper()
	cfg := &config.Config{
		MaxConcurrentActions: 5,
		ActionTimeout:        2 * time.Second,
		RequestTimeout:       5 * time.Second,
		SessionMaxInflight:   5,
		EnableSandbox:        true,
		AllowedActions:       []string{"toggle_light", "open_app"},
	}
	logger := testLogger()

	llm := clients.NewLLMClient(llmUpstream.URL, "default", 0.7, 256, 0, logger)
	mem := clients.NewMemoryClient(memoryUpstream.URL, "memories", 0, logger)
	act := clients.NewActionClient(actionUpstream.URL, 0, logger)

	policy := safety.BuiltinPolicy(cfg.AllowedActions)
	validator := safety.NewValidator(policy, cfg)
	exec := executor.New(act, cfg.ActionTimeout, cfg.DryRunMode, logger)
	pl := pipeline.New(llm, mem, validator, exec, nil, "", cfg.AllowedActions, cfg.RequestTimeout, logger)
	sessions := session.NewManager(logger)

	return NewServer(cfg, pl, sessions, llm, mem, act, policy, nil, logger)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllowedActionsHandler(t *testing.T) {
	noop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	s := newTestServer(t, noop, noop, noop)

	req := httptest.NewRequest(http.MethodGet, "/api/actions/allowed", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out allowedActionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.ElementsMatch(t, []string{"toggle_light", "open_app"}, out.Actions)
}

func TestExecuteActionHandler_Success(t *testing.T) {
	planJSON := `{"intent":"turn on the light","actions":[{"type":"iot_action","tool":"toggle_light","safety_level":"low"}]}`
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": planJSON})
	}))
	noop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	actionSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(clients.ExecuteResult{Status: "success", Result: "light on"})
	}))
	s := newTestServer(t, llmSrv, noop, actionSrv)

	body, _ := json.Marshal(executeRequest{Type: "iot_action", Content: "turn on the light"})
	req := httptest.NewRequest(http.MethodPost, "/api/actions/execute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out plan.PipelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, plan.ResponseSuccess, out.Status)
}

func TestMemorySearchHandler_NeverFails(t *testing.T) {
	noop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	downMemory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	s := newTestServer(t, noop, downMemory, noop)

	body, _ := json.Marshal(memorySearchRequest{Query: "lights"})
	req := httptest.NewRequest(http.MethodPost, "/api/memory/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyHandler_UnhealthyUpstreamYields503(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	s := newTestServer(t, up, down, up)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
