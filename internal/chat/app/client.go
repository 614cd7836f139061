package app

import (
	"encoding/json"
	"sync"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// SocketConn the part of a websocket connection the chat needs.
// *websocket.Conn from gofiber satisfies it.
type SocketConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Client one authenticated connection. All writes go through its writer
// goroutine so frames never interleave.
type Client struct {
	UserID      string
	ConnectedAt time.Time

	conn      SocketConn
	send      chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewClient wrap conn for userID with a bounded outbound queue
func NewClient(userID string, conn SocketConn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		UserID:      userID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Send queue an event. Returns false when the client is closed or its queue is full.
func (c *Client) Send(resp domain.WSResponse) bool {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal websocket event", zap.String("type", string(resp.Type)), zap.Error(err))
		return false
	}
	return c.SendRaw(b)
}

// SendRaw queue an encoded frame
func (c *Client) SendRaw(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- b:
		return true
	case <-c.done:
		return false
	default:
		logger.Log.Warn("websocket send queue full, dropping frame", zap.String("userID", c.UserID))
		return false
	}
}

// Open reports whether the client still accepts frames
func (c *Client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close stop accepting frames. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done closed once Close has been called
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the writer goroutine has returned
func (c *Client) Wait() {
	<-c.stopped
}

// writeLoop drains the queue and pings every interval. A failed write or ping
// closes the underlying connection so the read loop ends and cleanup runs.
func (c *Client) writeLoop(pingInterval time.Duration) {
	defer close(c.stopped)

	var tick <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case b := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Log.Warn("websocket write failed", zap.String("userID", c.UserID), zap.Error(err))
				c.Close()
				c.conn.Close()
				return
			}
		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				logger.Log.Warn("websocket ping failed", zap.String("userID", c.UserID), zap.Error(err))
				c.Close()
				c.conn.Close()
				return
			}
			logger.Log.Debug("ping sent", zap.String("userID", c.UserID))
		case <-c.done:
			return
		}
	}
}
