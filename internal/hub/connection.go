package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Connection wraps one authenticated WebSocket, owned by the Hub under its
// user's entry in the connection table.
type Connection struct {
	conn   *websocket.Conn
	hub    *Hub
	user   auth.User
	send   chan events.Envelope
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closeOnce sync.Once
}

func newConnection(wsConn *websocket.Conn, h *Hub, user auth.User) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   wsConn,
		hub:    h,
		user:   user,
		send:   make(chan events.Envelope, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Connection) enqueue(env events.Envelope) {
	select {
	case c.send <- env:
	case <-c.ctx.Done():
	default:
		c.hub.log.Warnf("send buffer full, dropping connection for user=%s", c.user.ID)
		c.close()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		_ = c.conn.Close()
		c.hub.deregister(c.user.ID, c)
	})
}

// start begins the connection's lifecycle: welcome, resume/restart
// decision, then the read/write pumps.
func (c *Connection) start(ctx context.Context) {
	go c.writePump()

	rt := c.hub.runtimeFor(c.user.ID)
	rt.SetUserLLMKey(c.user.LLMKey)

	c.enqueue(events.Envelope{
		Type: events.TypeSystem,
		Data: events.System{Content: "welcome", IsAdmin: c.user.IsAdmin},
	})
	if c.user.LLMKey == "" {
		c.enqueue(events.Envelope{Type: events.TypeNeedsAPIKey})
	}

	rt.Decide(ctx)

	c.readPump()
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.hub.log.Errorf("write: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var wire struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := c.conn.ReadJSON(&wire); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("read: %v", err)
			}
			return
		}

		c.dispatch(wire.Type, wire.Data)
	}
}

func (c *Connection) sendError(kind, message string) {
	c.enqueue(events.Envelope{Type: events.TypeError, Data: events.Error{Kind: kind, Message: message}})
}
