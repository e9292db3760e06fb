package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 5

// memorySearchHandler handles POST /api/memory/search: a direct, synchronous
// query against the memory collaborator, bypassing plan generation. Never
// fails (I4's absorb-on-failure discipline applies here too) — an
// unreachable memory service yields an empty hit list, not an error.
func (s *Server) memorySearchHandler(c *gin.Context) {
	var req memorySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits := s.memory.Search(c.Request.Context(), req.Query, limit)
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// memoryStoreHandler handles POST /api/memory/store: a direct write to the
// memory collaborator, distinct from the pipeline's fire-and-forget store
// stage — callers here get to know whether the write actually landed.
func (s *Server) memoryStoreHandler(c *gin.Context) {
	var req memoryStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	status := "failed"
	if s.memory.Store(c.Request.Context(), req.ID, req.Content, req.Metadata) {
		status = "stored"
	}
	c.JSON(http.StatusOK, memoryStoreResponse{Status: status})
}
