package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// ConnectionManager manages WebSocket connections and their session
// subscriptions on the bus.
type ConnectionManager struct {
	bus *Bus

	// Active connections: connection_id → *Connection
	connections map[string]*Connection
	mu          sync.RWMutex

	// Write timeout for WebSocket sends
	writeTimeout time.Duration
}

// Connection represents a single WebSocket client.
//
// joins is accessed WITHOUT a lock. This is safe because all reads and
// writes happen on the single goroutine that owns this connection
// (HandleConnection's read loop and its deferred cleanup). If a Connection
// is ever mutated from a different goroutine, joins must be protected by
// a mutex.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	joins  map[string]*sessionJoin // session_id → active join
	ctx    context.Context
	cancel context.CancelFunc
}

// sessionJoin tracks one session subscription of a connection.
type sessionJoin struct {
	subID  string
	cancel context.CancelFunc // stops the forwarding goroutine
}

// NewConnectionManager creates a connection manager bound to a bus.
func NewConnectionManager(bus *Bus, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		bus:          bus,
		connections:  make(map[string]*Connection),
		writeTimeout: writeTimeout,
	}
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the WebSocket HTTP handler after upgrade. When sessionID is
// non-empty the connection is joined to that session immediately, without
// waiting for a join_session message. Blocks until the connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn, sessionID string) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:     connID,
		Conn:   conn,
		joins:  make(map[string]*sessionJoin),
		ctx:    ctx,
		cancel: cancel,
	}

	m.registerConnection(c)
	defer m.unregisterConnection(c)

	m.sendJSON(c, map[string]string{
		"type":          msgTypeConnected,
		"connection_id": connID,
		"session_id":    sessionID,
		"message":       "connection established",
	})

	if sessionID != "" {
		m.joinSession(c, sessionID)
	}

	// Read loop — process client messages until connection closes
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message",
				"connection_id", connID, "error", err)
			continue
		}

		m.handleClientMessage(c, &msg)
	}
}

// ActiveConnections returns the count of active WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// handleClientMessage dispatches a client message to the appropriate handler.
func (m *ConnectionManager) handleClientMessage(c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case "join_session":
		if msg.SessionID == "" {
			m.sendJSON(c, map[string]string{
				"type":    msgTypeError,
				"message": "session_id is required for join_session",
			})
			return
		}
		m.joinSession(c, msg.SessionID)

	case "leave_session":
		if msg.SessionID == "" {
			m.sendJSON(c, map[string]string{
				"type":    msgTypeError,
				"message": "session_id is required for leave_session",
			})
			return
		}
		m.leaveSession(c, msg.SessionID)

	case "ping":
		m.sendJSON(c, map[string]string{"type": msgTypePong})

	default:
		m.sendJSON(c, map[string]string{
			"type":    msgTypeError,
			"message": "unknown action: " + msg.Action,
		})
	}
}

// joinSession subscribes the connection on the bus, acknowledges the join,
// replays the session history, and starts a goroutine forwarding live
// events. History is sent before the forwarder starts, so the client sees
// every event exactly once and in order.
func (m *ConnectionManager) joinSession(c *Connection, sessionID string) {
	if _, already := c.joins[sessionID]; already {
		m.sendJSON(c, map[string]string{
			"type":       msgTypeJoined,
			"session_id": sessionID,
		})
		return
	}

	subID, ch, history := m.bus.Subscribe(sessionID)

	m.sendJSON(c, map[string]string{
		"type":       msgTypeJoined,
		"session_id": sessionID,
	})
	for _, event := range history {
		m.sendJSON(c, event)
	}

	fwdCtx, fwdCancel := context.WithCancel(c.ctx)
	c.joins[sessionID] = &sessionJoin{subID: subID, cancel: fwdCancel}

	go func() {
		defer fwdCancel()
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				m.sendJSON(c, event)
			case <-fwdCtx.Done():
				return
			}
		}
	}()
}

// leaveSession detaches the connection from a session and stops its
// forwarding goroutine.
func (m *ConnectionManager) leaveSession(c *Connection, sessionID string) {
	join, ok := c.joins[sessionID]
	if !ok {
		return
	}
	delete(c.joins, sessionID)
	if join.subID != "" {
		m.bus.Unsubscribe(sessionID, join.subID)
	}
	join.cancel()
}

// registerConnection adds a connection to the tracking map.
func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

// unregisterConnection removes a connection and all its session joins.
func (m *ConnectionManager) unregisterConnection(c *Connection) {
	for sessionID := range c.joins {
		m.leaveSession(c, sessionID)
	}

	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

// sendJSON marshals and sends a JSON message to a single connection.
// Writes may come from the read loop and forwarding goroutines at once;
// the underlying connection serializes concurrent writers.
func (m *ConnectionManager) sendJSON(c *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message",
			"connection_id", c.ID, "error", err)
		return
	}
	if err := m.sendRaw(c, data); err != nil {
		slog.Warn("Failed to send WebSocket message",
			"connection_id", c.ID, "error", err)
	}
}

// sendRaw sends raw bytes to a single connection with a write timeout.
func (m *ConnectionManager) sendRaw(c *Connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	return c.Conn.Write(writeCtx, websocket.MessageText, data)
}
