package handlers

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/bridge/transport"
	"github.com/sonr-io/keybridge/engine"
)

// ConnectionManager tracks open engine connections so they can be closed on
// shutdown. Hijacked websockets are not closed by http.Server.Shutdown.
type ConnectionManager struct {
	connections map[*transport.Conn]struct{}
	mutex       sync.Mutex
}

// NewConnectionManager creates an empty connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{connections: make(map[*transport.Conn]struct{})}
}

// AddConnection registers conn.
func (cm *ConnectionManager) AddConnection(conn *transport.Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn] = struct{}{}
}

// RemoveConnection forgets conn.
func (cm *ConnectionManager) RemoveConnection(conn *transport.Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.connections, conn)
}

// Count returns the number of open connections.
func (cm *ConnectionManager) Count() int {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return len(cm.connections)
}

// CloseAll closes every registered connection.
func (cm *ConnectionManager) CloseAll() {
	cm.mutex.Lock()
	conns := make([]*transport.Conn, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mutex.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// EngineHandlers serves an engine to websocket clients.
type EngineHandlers struct {
	engine      engine.Engine
	upgrader    *websocket.Upgrader
	connections *ConnectionManager
	metrics     *Metrics
	log         zerolog.Logger
}

// NewEngineHandlers creates the engine websocket handlers
func NewEngineHandlers(
	e engine.Engine,
	upgrader *websocket.Upgrader,
	connections *ConnectionManager,
	metrics *Metrics,
	log zerolog.Logger,
) *EngineHandlers {
	return &EngineHandlers{
		engine:      e,
		upgrader:    upgrader,
		connections: connections,
		metrics:     metrics,
		log:         log,
	}
}

// WebSocketHandler upgrades the request and runs a worker on the
// connection until either side closes it.
func (h *EngineHandlers) WebSocketHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			h.metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
			h.log.Debug().Err(err).Msg("websocket upgrade failed")
			return nil
		}

		conn := transport.Wrap(ws)
		h.connections.AddConnection(conn)
		h.metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()
		h.metrics.ConnectionsActive.Inc()
		defer func() {
			h.connections.RemoveConnection(conn)
			h.metrics.ConnectionsActive.Dec()
			_ = conn.Close()
		}()

		remote := c.RealIP()
		h.log.Info().Str("remote", remote).Msg("engine connection opened")

		worker := engine.NewWorker(h.engine,
			engine.WithWorkerLogger(h.log),
			engine.WithObserver(h.metrics.Observer()),
		)
		if err := worker.Serve(c.Request().Context(), conn); err != nil {
			h.log.Warn().Err(err).Str("remote", remote).Msg("engine connection failed")
			return nil
		}
		h.log.Info().Str("remote", remote).Msg("engine connection closed")
		return nil
	}
}
