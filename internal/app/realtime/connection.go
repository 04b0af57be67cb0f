package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/roomhub/internal/app/system/limits"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 128
)

// ErrClosed is returned by Send once the connection has been closed.
var ErrClosed = errors.New("realtime: connection closed")

// Connection wraps one client websocket. Outbound frames go through a
// buffered channel drained by a single write loop; a client that cannot keep
// up is disconnected rather than allowed to block the sender.
type Connection struct {
	ID     string
	UserID string

	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewConnection wraps ws for userID with a fresh connection ID.
func NewConnection(userID string, ws *websocket.Conn, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		ID:     uuid.NewString(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the write loop. Call it once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send queues payload. A full buffer closes the connection.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn("dropping slow websocket client",
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.UserID))
		c.Close(websocket.ClosePolicyViolation, "send buffer full")
		return ErrClosed
	}
}

// Done is closed when the connection closes.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Close sends a close frame and tears the socket down. Safe to call more
// than once.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// ReadLoop consumes inbound frames until the client goes away. Clients only
// receive events; anything they send is discarded. Pongs extend the read
// deadline.
func (c *Connection) ReadLoop() {
	c.ws.SetReadLimit(limits.MaxSocketFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}
