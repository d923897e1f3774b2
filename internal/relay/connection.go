package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Connection wraps one classroom WebSocket connection. All writes go
// through a single writer goroutine so concurrent broadcasts never race
// on the underlying socket. The classroom scope, user identity and role
// are fixed at accept time and immutable for the connection's lifetime.
type Connection struct {
	conn      *websocket.Conn
	writeCh   chan []byte
	classCode string
	userID    int64 // 0 when the client connected anonymously
	role      string // "teacher", "student" or ""
	limiter   *rate.Limiter

	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewConnection creates the wrapper and starts its writer goroutine.
// sendBuffer bounds how many pending events a slow client may queue
// before sends to it start timing out.
func NewConnection(conn *websocket.Conn, classCode string, userID int64, role string, sendBuffer int, writeTimeout time.Duration, limiter *rate.Limiter) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:         conn,
		writeCh:      make(chan []byte, sendBuffer),
		classCode:    classCode,
		userID:       userID,
		role:         role,
		limiter:      limiter,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying socket. On any
// exit it cancels the connection context so pending and future Write
// calls fail with ErrConnectionClosed. The write channel is never
// closed: a dead peer can race Broadcast into Write, and a send on a
// closed channel would panic inside another connection's read pump.
func (c *Connection) writeLoop() {
	defer c.cancel()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// Write queues pre-serialized JSON for delivery. It fails fast when the
// connection is closed and times out when the client's send buffer
// stays full, so a single broken peer never stalls a broadcast.
func (c *Connection) Write(data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// WriteJSON marshals v and queues it for delivery.
func (c *Connection) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}
	return c.Write(data)
}

// Close tears the connection down exactly once. The writer goroutine
// exits via context cancellation.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// ClassCode returns the broadcast partition key set at accept time.
func (c *Connection) ClassCode() string {
	return c.classCode
}

// UserID returns the connecting user's numeric ID, or 0 when the client
// connected without one. Used only for event payloads and logging.
func (c *Connection) UserID() int64 {
	return c.userID
}

// Role returns "teacher", "student" or the empty string.
func (c *Connection) Role() string {
	return c.role
}

// Allow reports whether the connection is within its inbound message
// budget.
func (c *Connection) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}
