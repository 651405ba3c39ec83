package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	wslib "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents one server-side feed connection. It carries no records
// until the peer sends a subscribe frame and receives the ack.
type Client struct {
	hub  *Hub
	conn *wslib.Conn
	send chan []byte

	mu     sync.RWMutex
	userID string
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *wslib.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// UserID returns the user this connection subscribed for, or "" before the
// subscribe handshake.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump processes incoming frames. The only meaningful client frame is
// subscribe; everything else is ignored. Returns on read error, which
// triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Type != FrameSubscribe || f.UserID == "" {
			continue
		}

		c.mu.Lock()
		c.userID = f.UserID
		c.mu.Unlock()

		ack, err := json.Marshal(Frame{Type: FrameAck, UserID: f.UserID})
		if err != nil {
			continue
		}
		select {
		case c.send <- ack:
		case <-ctx.Done():
			return
		}
	}
}

// writePump drains the send channel and writes frames to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel, connection is done.
				return
			}
			if err := c.conn.Write(ctx, wslib.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
