package ws

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	readLimit     = 64 * 1024
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Client is one connected socket. Writes go through a buffered channel;
// slow consumers drop frames rather than block the publisher.
type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

func (c *Client) Send(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// drop if blocked
	}
}

// Done is closed when the socket goes away.
func (c *Client) Done() <-chan struct{} { return c.done }

// ReadPump consumes (and discards) inbound frames so pings, pongs and close
// frames are processed. Returns when the peer disconnects.
func (c *Client) ReadPump() {
	defer close(c.done)
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. Returns when the socket closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
