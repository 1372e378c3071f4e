package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one accepted signaling connection.
//
// All data frames go through the buffered send channel and a single writer
// goroutine; control frames (ping, close) may additionally be written via
// WriteControl, which gorilla allows concurrently with one writer. Enqueueing
// never blocks: when the queue is full the message is dropped, so one stalled
// client cannot back-pressure the hub.
type client struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	// onDrop is invoked for every message dropped due to a full send queue.
	onDrop func()
}

func newClient(id string, conn *websocket.Conn, logger *slog.Logger, queueSize int, onDrop func()) *client {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &client{
		id:     id,
		conn:   conn,
		log:    logger,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
}

// enqueue queues one marshaled message for delivery. It reports whether the
// message was accepted.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		if c.onDrop != nil {
			c.onDrop()
		}
		c.log.Warn("send queue full, dropping message", "conn_id", c.id)
		return false
	}
}

// writeLoop owns all data writes for the connection and emits keepalive
// pings. It exits when the client is closed.
func (c *client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
