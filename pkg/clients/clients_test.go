package clients

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestLLMClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		json.NewEncoder(w).Encode(generateResponse{Text: "hello"})
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "test-model", 0.7, 256, 5*time.Second, discardLogger())
	text, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestLLMClient_NonTwoXXIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "m", 0.5, 100, 5*time.Second, discardLogger())
	_, err := c.Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestLLMClient_UnreachableIsUnavailable(t *testing.T) {
	c := NewLLMClient("http://127.0.0.1:1", "m", 0.5, 100, 500*time.Millisecond, discardLogger())
	_, err := c.Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryClient_Search_ZipsDocumentsAndMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{
			Documents: [][]string{{"doc-a", "doc-b"}},
			Metadatas: [][]map[string]interface{}{{{"k": "v"}, nil}},
		})
	}))
	defer srv.Close()

	c := NewMemoryClient(srv.URL, "mem", 5*time.Second, discardLogger())
	hits := c.Search(context.Background(), "q", 5)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-a", hits[0].Content)
	assert.Equal(t, "v", hits[0].Metadata["k"])
	assert.Equal(t, "doc-b", hits[1].Content)
	assert.Empty(t, hits[1].Metadata)
}

func TestMemoryClient_Search_FailureYieldsEmpty(t *testing.T) {
	c := NewMemoryClient("http://127.0.0.1:1", "mem", 500*time.Millisecond, discardLogger())
	hits := c.Search(context.Background(), "q", 5)
	assert.Empty(t, hits)
}

func TestActionClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		json.NewEncoder(w).Encode(ExecuteResult{Status: "success", Result: "ok"})
	}))
	defer srv.Close()

	c := NewActionClient(srv.URL, 5*time.Second, discardLogger())
	out, err := c.Execute(context.Background(), plan.Action{Tool: "open_app"})
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
}
