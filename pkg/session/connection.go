// Package session implements the duplex connection multiplexer (C6):
// one Connection per accepted client, an inbound read loop gated by a
// bounded in-flight semaphore, and a single outbound writer serializing
// pipeline responses in completion order (§4.6).
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

// Conn is the narrow duplex-transport capability a Connection needs.
// Satisfied by *websocket.Conn; kept as an interface so tests can drive a
// Connection without a real socket (§9's capability-interface note).
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// Pipeline is the capability a Connection dispatches requests to.
type Pipeline interface {
	Process(ctx context.Context, req plan.Request) plan.PipelineResponse
}

// Connection is one accepted duplex client. CONNECTED -> CLOSED per §4.6's
// per-connection state machine.
type Connection struct {
	ID       string
	conn     Conn
	pipeline Pipeline
	logger   *slog.Logger

	outbound chan plan.PipelineResponse
	inflight chan struct{} // bounded semaphore, capacity K

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	closeOnce sync.Once
}

// NewConnection constructs a Connection bound to conn and pipeline, with
// up to maxInflight concurrent pipeline invocations (K in §4.6).
func NewConnection(id string, conn Conn, pipeline Pipeline, maxInflight int, logger *slog.Logger) *Connection {
	if maxInflight < 1 {
		maxInflight = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:       id,
		conn:     conn,
		pipeline: pipeline,
		logger:   logger,
		outbound: make(chan plan.PipelineResponse, maxInflight),
		inflight: make(chan struct{}, maxInflight),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run drives the connection until the read loop exits (client close,
// transport error, or Close is called). It blocks the caller; run it in
// its own goroutine. onDead is invoked exactly once, after the read loop
// has exited — whether through a read error, a write failure (which closes
// the transport), or Close — so the Manager can remove it from the active
// set (dead-connection reaping, §9).
func (c *Connection) Run(onDead func()) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.readLoop()

	c.Close()
	<-writerDone
	if onDead != nil {
		onDead()
	}
}

// readLoop is the CONNECTED state: each inbound frame becomes a pipeline
// task, gated by the in-flight semaphore so a single connection never runs
// more than K concurrent pipelines (back-pressure by not reading until a
// slot frees up).
func (c *Connection) readLoop() {
	for {
		var req plan.Request
		if err := c.conn.ReadJSON(&req); err != nil {
			return
		}

		select {
		case c.inflight <- struct{}{}:
		case <-c.ctx.Done():
			return
		}

		c.wg.Add(1)
		go func(req plan.Request) {
			defer c.wg.Done()
			defer func() { <-c.inflight }()

			resp := c.pipeline.Process(c.ctx, req)

			select {
			case c.outbound <- resp:
			case <-c.ctx.Done():
			}
		}(req)
	}
}

// writeLoop is the single outbound path: it drains c.outbound and writes
// each frame, so pipeline-completion order becomes wire order even though
// multiple pipelines run concurrently (§4.6, §5 ordering guarantees).
func (c *Connection) writeLoop() {
	for {
		select {
		case resp, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(resp); err != nil {
				c.logger.Warn("connection write failed", slog.String("connection_id", c.ID), slog.String("error", err.Error()))
				c.cancel()
				_ = c.conn.Close() // unblocks the read loop so Run can reap the connection
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Close transitions the connection to CLOSED: it cancels all pipelines the
// connection owns and closes the transport. Idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
		c.wg.Wait()
		close(c.outbound)
	})
}
