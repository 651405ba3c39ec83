package event

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/oakledger/beacon/internal/model"
)

func TestSubscribePublish(t *testing.T) {
	bus := NewBus(slog.Default())

	var got []model.SystemEvent
	unsub := bus.Subscribe(func(e model.SystemEvent) {
		got = append(got, e)
	})

	bus.Publish(model.SystemEvent{Type: "data_refresh", Target: "balance"})

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Type != "data_refresh" || got[0].Target != "balance" {
		t.Errorf("unexpected event: %+v", got[0])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be filled")
	}

	unsub()
	bus.Publish(model.SystemEvent{Type: "data_refresh", Target: "balance"})

	if len(got) != 1 {
		t.Errorf("expected no delivery after unsubscribe, got %d", len(got))
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	bus := NewBus(slog.Default())

	calls := 0
	unsub := bus.Subscribe(func(model.SystemEvent) { calls++ })
	bus.Subscribe(func(model.SystemEvent) { calls++ })

	unsub()
	unsub() // second call must not remove the other registration

	bus.Publish(model.SystemEvent{Type: "data_refresh"})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSameHandlerTwice(t *testing.T) {
	bus := NewBus(slog.Default())

	calls := 0
	fn := func(model.SystemEvent) { calls++ }
	unsub1 := bus.Subscribe(fn)
	bus.Subscribe(fn)

	bus.Publish(model.SystemEvent{Type: "data_refresh"})
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}

	unsub1()
	bus.Publish(model.SystemEvent{Type: "data_refresh"})
	if calls != 3 {
		t.Errorf("expected 3 calls after removing one registration, got %d", calls)
	}
}

func TestPanicIsolation(t *testing.T) {
	bus := NewBus(slog.Default())

	bus.Subscribe(func(model.SystemEvent) { panic("boom") })
	delivered := false
	bus.Subscribe(func(model.SystemEvent) { delivered = true })

	bus.Publish(model.SystemEvent{Type: "data_refresh"})

	if !delivered {
		t.Error("panic in one handler prevented delivery to another")
	}
}

func TestTrigger(t *testing.T) {
	bus := NewBus(slog.Default())

	var got model.SystemEvent
	bus.Subscribe(func(e model.SystemEvent) { got = e })

	bus.Trigger("balance", map[string]string{"reason": "user"})

	if got.Type != "manual_refresh" {
		t.Errorf("type = %q, want manual_refresh", got.Type)
	}
	if got.Action != "refresh" {
		t.Errorf("action = %q, want refresh", got.Action)
	}
	if got.Target != "balance" {
		t.Errorf("target = %q, want balance", got.Target)
	}
	if got.Data["reason"] != "user" {
		t.Errorf("data = %v", got.Data)
	}
}

func TestHistoryBounded(t *testing.T) {
	bus := NewBus(slog.Default())

	for i := 0; i < historySize+10; i++ {
		bus.Publish(model.SystemEvent{Type: "data_refresh", Target: "t"})
	}

	if got := len(bus.History()); got != historySize {
		t.Errorf("history length = %d, want %d", got, historySize)
	}
}

func TestHistoryNotReplayed(t *testing.T) {
	bus := NewBus(slog.Default())
	bus.Publish(model.SystemEvent{Type: "data_refresh"})

	calls := 0
	bus.Subscribe(func(model.SystemEvent) { calls++ })

	if calls != 0 {
		t.Errorf("history was replayed to a new subscriber: %d calls", calls)
	}
}

func TestClearHistoryKeepsSubscribers(t *testing.T) {
	bus := NewBus(slog.Default())
	calls := 0
	bus.Subscribe(func(model.SystemEvent) { calls++ })

	bus.Publish(model.SystemEvent{Type: "data_refresh"})
	bus.ClearHistory()

	if got := len(bus.History()); got != 0 {
		t.Errorf("history length after clear = %d", got)
	}
	if got := bus.SubscriberCount(); got != 1 {
		t.Errorf("subscriber count after clear = %d, want 1", got)
	}

	bus.Publish(model.SystemEvent{Type: "data_refresh"})
	if calls != 2 {
		t.Errorf("expected subscriber to survive ClearHistory, calls = %d", calls)
	}
}

func TestConcurrentSubscribeDuringPublish(t *testing.T) {
	bus := NewBus(slog.Default())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				unsub := bus.Subscribe(func(model.SystemEvent) {})
				bus.Publish(model.SystemEvent{Type: "data_refresh"})
				unsub()
			}
		}()
	}
	wg.Wait()

	if got := bus.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
}
