// Package event implements the in-process pub/sub registry for silent
// system events.
package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oakledger/beacon/internal/model"
)

// historySize bounds the diagnostic ring of recent events.
const historySize = 50

// Handler receives published system events. Handlers run synchronously on
// the publisher's goroutine; a panic in one handler is isolated and does
// not prevent delivery to the others.
type Handler func(model.SystemEvent)

type subscription struct {
	fn Handler
}

// Bus maintains the set of registered handlers and a bounded history of
// recent events. Subscribers persist across session teardown; only the
// history is cleared.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*subscription]struct{}
	history []model.SystemEvent
	logger  *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers fn and returns its unsubscribe function. Unsubscribe
// is idempotent and removes exactly this registration; the same fn may be
// subscribed more than once.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
}

// Publish delivers e to every handler registered at the time of the call.
// The handler set is snapshotted first, so a subscribe or unsubscribe that
// races with the publish cannot cause a handler to run zero or two times
// for this event. History is not replayed to late subscribers.
func (b *Bus) Publish(e model.SystemEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, e)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
	snapshot := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.invoke(sub.fn, e)
	}
}

// Trigger synthesizes a manual_refresh event for target and publishes it.
// Used by UI-initiated "refresh now" actions.
func (b *Bus) Trigger(target string, data map[string]string) {
	b.Publish(model.SystemEvent{
		Type:      "manual_refresh",
		Action:    "refresh",
		Target:    target,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// History returns a copy of the retained events, oldest first.
func (b *Bus) History() []model.SystemEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.SystemEvent, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory drops the retained events. Called on session teardown;
// registered handlers are left intact.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) invoke(fn Handler, e model.SystemEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("system event handler panicked", "type", e.Type, "target", e.Target, "panic", r)
		}
	}()
	fn(e)
}
