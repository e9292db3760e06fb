package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// executeActionHandler handles POST /api/actions/execute: the synchronous
// entry point into the full pipeline (§4.5) — plan, validate, execute,
// memorize — with no dependency on the duplex session multiplexer (C6).
func (s *Server) executeActionHandler(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp := s.pipeline.Process(c.Request.Context(), plan.Request{
		ID:      req.ID,
		Kind:    req.Type,
		Content: req.Content,
		Context: req.Context,
	})

	s.logger.Info("request processed via API",
		slog.String("requested_by", extractAuthor(c)),
		slog.String("request_id", resp.RequestID),
		slog.String("status", string(resp.Status)))

	c.JSON(http.StatusOK, resp)
}

// allowedActionsHandler handles GET /api/actions/allowed: the tool
// allow-list currently enforced by the safety validator (§4.3), useful for
// clients building a plan-confirmation UI.
func (s *Server) allowedActionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, allowedActionsResponse{Actions: s.policy.AllowedActions})
}
