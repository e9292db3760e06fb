// Package api provides the orchestrator's HTTP surface (C8): health probes,
// the synchronous action/memory endpoints, and the duplex WebSocket
// endpoint that hands each connection to the session multiplexer (C6).
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/orchestrator/pkg/audit"
	"github.com/codeready-toolchain/orchestrator/pkg/clients"
	"github.com/codeready-toolchain/orchestrator/pkg/config"
	"github.com/codeready-toolchain/orchestrator/pkg/pipeline"
	"github.com/codeready-toolchain/orchestrator/pkg/safety"
	"github.com/codeready-toolchain/orchestrator/pkg/session"
	"github.com/codeready-toolchain/orchestrator/pkg/version"
)

// Server is the HTTP API server (C8), wired to the already-constructed
// pipeline, session manager, and collaborator clients.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg      *config.Config
	pipeline *pipeline.Pipeline
	sessions *session.Manager

	llm    *clients.LLMClient
	memory *clients.MemoryClient
	action *clients.ActionClient
	policy *safety.Policy
	audit  *audit.Store // nil when the audit log is disabled

	logger *slog.Logger
}

// NewServer constructs a Server and registers every route named in §4.8.
// audit may be nil.
func NewServer(
	cfg *config.Config,
	pl *pipeline.Pipeline,
	sessions *session.Manager,
	llm *clients.LLMClient,
	memory *clients.MemoryClient,
	action *clients.ActionClient,
	policy *safety.Policy,
	auditStore *audit.Store,
	logger *slog.Logger,
) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders(), corsMiddleware(cfg.CORSOrigins))

	s := &Server{
		engine:   engine,
		cfg:      cfg,
		pipeline: pl,
		sessions: sessions,
		llm:      llm,
		memory:   memory,
		action:   action,
		policy:   policy,
		audit:    auditStore,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/health/ready", s.readyHandler)
	s.engine.GET("/health/live", s.liveHandler)

	apiGroup := s.engine.Group("/api")
	apiGroup.POST("/actions/execute", s.executeActionHandler)
	apiGroup.GET("/actions/allowed", s.allowedActionsHandler)
	apiGroup.POST("/memory/search", s.memorySearchHandler)
	apiGroup.POST("/memory/store", s.memoryStoreHandler)

	s.engine.GET("/ws", s.websocketHandler)
}

// Start serves on addr, blocking until Shutdown is called or an
// unrecoverable error occurs.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// StartWithListener serves on a pre-created listener, used by tests that
// need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	err := s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes active duplex connections, cancelling their pending
// pipelines immediately (ctx does not apply to this step), and then
// gracefully stops the HTTP server, bounded by ctx's deadline (C7's
// ShutdownGraceSeconds).
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Full()})
}

func (s *Server) liveHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Full()})
}

// readyHandler checks every collaborator the process depends on and
// reports "unhealthy" with 503 if any is unreachable, so an orchestrator
// (e.g. Kubernetes) can hold traffic back until all three collaborators —
// plus the audit store, when enabled — answer.
func (s *Server) readyHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]HealthCheck{}
	status := "healthy"

	check := func(name string, err error) {
		if err != nil {
			status = "unhealthy"
			checks[name] = HealthCheck{Status: "unhealthy", Message: err.Error()}
			return
		}
		checks[name] = HealthCheck{Status: "healthy"}
	}

	check("llm", s.llm.HealthCheck(reqCtx))
	check("memory", s.memory.HealthCheck(reqCtx))
	check("action_executor", s.action.HealthCheck(reqCtx))
	if s.audit != nil {
		check("audit", s.audit.Health(reqCtx))
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, HealthResponse{Status: status, Version: version.Full(), Checks: checks})
}
