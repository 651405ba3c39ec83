package ws

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/oakledger/beacon/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestPublishRoutesByUser(t *testing.T) {
	hub := NewHub(slog.Default())

	mine := mockClient(hub, "u1")
	other := mockClient(hub, "u2")
	hub.Register(mine)
	hub.Register(other)

	hub.Publish(model.Record{ID: "n1", UserID: "u1", Text: "hello"})

	select {
	case data := <-mine.send:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if f.Type != FrameNotification {
			t.Errorf("type = %q, want %q", f.Type, FrameNotification)
		}
		if f.Record == nil || f.Record.ID != "n1" {
			t.Errorf("record = %+v", f.Record)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-other.send:
		t.Fatal("record leaked to a different user's connection")
	default:
	}
}

func TestPublishSkipsUnsubscribedClient(t *testing.T) {
	hub := NewHub(slog.Default())

	pending := mockClient(hub, "") // no subscribe frame yet
	hub.Register(pending)

	hub.Publish(model.Record{ID: "n1", UserID: "u1"})

	select {
	case <-pending.send:
		t.Fatal("record delivered before subscribe handshake")
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "u1")
	hub.Register(c)

	// Fill the buffer and then publish once more; must not block.
	for i := 0; i < sendBufferSize+5; i++ {
		hub.Publish(model.Record{ID: "n", UserID: "u1"})
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered frames = %d, want %d", got, sendBufferSize)
	}
}
