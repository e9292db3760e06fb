package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/orchestrator/pkg/session"
)

// upgrader accepts WebSocket upgrades from any origin. Auth is deferred to
// the reverse proxy in front of the orchestrator (see extractAuthor), not
// enforced at the origin-check layer.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler handles GET /ws: upgrades the connection and registers
// it with the session manager (C6), which owns it for the rest of its
// lifetime.
func (s *Server) websocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	connID := uuid.NewString()
	maxInflight := s.cfg.SessionMaxInflight
	sc := session.NewConnection(connID, conn, s.pipeline, maxInflight, s.logger)
	s.sessions.Register(sc)

	s.logger.Info("websocket connection established",
		slog.String("connection_id", connID),
		slog.String("remote_addr", c.Request.RemoteAddr))
}
