package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/oakledger/beacon/internal/model"
)

// Hub maintains the set of active feed connections, keyed by the user they
// subscribed for, and routes notification inserts to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish sends a notification record to every connection subscribed for
// its owning user.
func (h *Hub) Publish(r model.Record) {
	data, err := json.Marshal(Frame{Type: FrameNotification, Record: &r})
	if err != nil {
		h.logger.Error("marshal feed frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.UserID() != r.UserID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow client, drop the frame. It reconciles on its next
			// snapshot fetch.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
