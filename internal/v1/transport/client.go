// Package transport carries the WebSocket protocol: one JSON envelope per
// message, a read/write pump pair per connection, and a hub that routes
// commands into rooms.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBufferSize = 64
)

// Envelope is the single wire frame: every client and server message is
// {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsConnection abstracts the gorilla connection so tests can substitute a
// mock.
type wsConnection interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one WebSocket connection. It implements types.Conn, so the room
// package can hold it without knowing about WebSockets. Outbound sends go
// through a buffered channel and never block; a consumer that cannot keep up
// has its frames dropped.
type Client struct {
	hub  *Hub
	conn wsConnection
	id   string
	ip   string

	send      chan []byte
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
	roomID types.RoomIDType
	name   string
	color  string
}

func newClient(hub *Hub, conn wsConnection, ip string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		id:   uuid.NewString(),
		ip:   ip,
		send: make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string { return c.id }

// SendEvent marshals an envelope and queues it without blocking. Safe to call
// from any goroutine, including under room locks.
func (c *Client) SendEvent(event string, payload any) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			logging.Error(context.Background(), "Failed to marshal event payload",
				zap.String("event", event), zap.Error(err))
			return
		}
		data = b
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logging.Warn(context.Background(), "Send buffer full, dropping frame",
			zap.String("connId", c.id), zap.String("event", event))
	}
}

// Close shuts the outbound channel. Idempotent; the write pump drains what is
// already queued and then closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Client) setIdentity(roomID types.RoomIDType, name, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.name = name
	c.color = color
}

func (c *Client) identity() (types.RoomIDType, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.name, c.color
}

// readPump owns the socket's read side. It exits on any read error, at which
// point the connection is detached from its room.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.Close()
		c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug(context.Background(), "WebSocket closed unexpectedly",
					zap.String("connId", c.id), zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.SendEvent("error", errorPayload{Message: "Malformed message"})
			continue
		}
		c.hub.dispatch(c, env)
	}
}

// writePump owns the socket's write side and keeps the connection alive with
// protocol pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
