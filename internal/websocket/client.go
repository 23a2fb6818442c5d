package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/survey-api/pkg/logger"
)

const (
	writeWait = 10 * time.Second

	// Clients that stop answering pings are dropped after pongWait.
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards send nothing but control frames.
	maxMessageSize = 512

	defaultClientBufferSize = 8
)

// ErrClientClosed is returned by Send after Close
var ErrClientClosed = errors.New("websocket client closed")

// Conn is the part of *websocket.Conn the client uses
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client owns one websocket connection. Writes go through a buffered
// channel drained by a single write pump.
type Client struct {
	ConnectionID string

	conn Conn
	log  *logger.Logger

	mu        sync.Mutex
	send      chan []byte
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps conn
func NewClient(conn Conn, log *logger.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		ConnectionID: id,
		conn:         conn,
		log:          log.With("component", "ws_client", "conn_id", id),
		send:         make(chan []byte, defaultClientBufferSize),
		done:         make(chan struct{}),
	}
}

// SendJSON queues a frame. It never blocks; a full buffer drops the client.
func (c *Client) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("send buffer full, closing connection")
		c.closeLocked()
		return ErrClientClosed
	}
}

// Close flushes queued frames, sends a close frame and ends the pumps.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Done is closed once the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run starts the pumps and blocks until the connection ends or ctx is done.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	go c.readPump()

	select {
	case <-ctx.Done():
		c.Close()
		<-c.done
	case <-c.done:
	}
}

func (c *Client) finish() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		close(c.done)
	})
}

// readPump only services control frames; any read error ends the client.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.finish()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.finish()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("write error", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
