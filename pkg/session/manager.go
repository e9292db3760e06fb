package session

import (
	"log/slog"
	"sync"
)

// Manager holds the active-connection set, the only shared mutable state
// in C6 beyond the read-only config/client handles (§5). Mutated only by
// the accept path and the reaper, under a single mutex.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *slog.Logger
}

// NewManager constructs an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Register adds conn to the active set and starts it, removing it
// automatically when its read loop exits (dead-connection reaping, §9).
func (m *Manager) Register(conn *Connection) {
	m.mu.Lock()
	m.connections[conn.ID] = conn
	m.mu.Unlock()

	go conn.Run(func() {
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		m.logger.Info("connection closed", slog.String("connection_id", conn.ID))
	})
}

// Count returns the number of currently active connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Shutdown closes every active connection: each connection's pending
// pipelines are cancelled at once, and Shutdown then waits for their
// goroutines to return. In-flight pipelines are not given time to finish,
// and the wait is not bounded by a grace window.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	snapshot := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		snapshot = append(snapshot, c)
	}
	m.mu.RUnlock()

	for _, c := range snapshot {
		c.Close()
	}
}
