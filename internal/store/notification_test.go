package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/oakledger/beacon/internal/model"
)

type fakeRemote struct {
	listRecords []model.Record
	allRecords  []model.Record
	listErr     error
	setReadErr  error
	setReadIDs  [][]string
}

func (f *fakeRemote) List(ctx context.Context, userID string, limit int) ([]model.Record, error) {
	return f.listRecords, f.listErr
}

func (f *fakeRemote) All(ctx context.Context, userID string) ([]model.Record, error) {
	return f.allRecords, f.listErr
}

func (f *fakeRemote) SetRead(ctx context.Context, ids []string, read bool) error {
	f.setReadIDs = append(f.setReadIDs, ids)
	return f.setReadErr
}

func boolPtr(b bool) *bool { return &b }

func setupStore(t *testing.T) (*Store, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{}
	s := New(remote, slog.Default())
	s.Reset("u1")
	return s, remote
}

func visibleRecord(id string, read bool) model.Record {
	return model.Record{ID: id, UserID: "u1", Text: "text " + id, Read: read, Silent: boolPtr(false), CreatedAt: time.Now()}
}

func TestLoadInitialFiltersSilent(t *testing.T) {
	s, remote := setupStore(t)
	remote.listRecords = []model.Record{
		visibleRecord("a", false),
		{ID: "b", UserID: "u1", Silent: boolPtr(true), Type: "data_refresh", Target: "balance"},
		visibleRecord("c", true),
	}

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("load initial: %v", err)
	}

	if got := len(s.Notifications()); got != 2 {
		t.Errorf("visible length = %d, want 2", got)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
	for _, n := range s.Notifications() {
		if n.ID == "b" {
			t.Error("silent record leaked into the visible list")
		}
	}
}

func TestLoadInitialFailureDefaultsEmpty(t *testing.T) {
	s, remote := setupStore(t)
	remote.listErr = errors.New("boom")

	if err := s.LoadInitial(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := len(s.Notifications()); got != 0 {
		t.Errorf("visible length = %d, want 0", got)
	}
	if s.LoadError() == nil {
		t.Error("expected load error to be recorded")
	}
}

func TestStaleLoadDiscarded(t *testing.T) {
	s, remote := setupStore(t)
	remote.listRecords = []model.Record{visibleRecord("a", false)}

	// Simulate a user switch completing before the fetch lands: Reset runs,
	// then the (already started) load applies its result.
	s.Reset("u2")
	remote.listRecords = nil

	if err := s.LoadInitial(context.Background()); err != nil {
		t.Fatalf("load initial: %v", err)
	}
	if got := len(s.Notifications()); got != 0 {
		t.Errorf("visible length = %d, want 0", got)
	}
}

func TestIngestDeduplicatesByID(t *testing.T) {
	s, _ := setupStore(t)

	s.Ingest(model.Notification{ID: "a", Read: false, Priority: "normal"})
	s.Ingest(model.Notification{ID: "a", Read: true, Priority: "normal"})

	if got := len(s.Notifications()); got != 1 {
		t.Fatalf("visible length = %d, want 1", got)
	}
	if !s.Notifications()[0].Read {
		t.Error("expected latest read value to win")
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestIngestCapsVisibleList(t *testing.T) {
	s, _ := setupStore(t)

	for i := 0; i < visibleCap+20; i++ {
		s.Ingest(model.Notification{ID: string(rune('a'+i%26)) + string(rune('a'+i/26)), Read: true})
	}

	if got := len(s.Notifications()); got > visibleCap {
		t.Errorf("visible length = %d, want <= %d", got, visibleCap)
	}
	if got := len(s.HistoryCache()); got != visibleCap+20 {
		t.Errorf("history length = %d, want %d", got, visibleCap+20)
	}
}

func TestMarkAsReadOptimistic(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: false})

	if err := s.MarkAsRead(context.Background(), "a"); err != nil {
		t.Fatalf("mark as read: %v", err)
	}
	if !s.Notifications()[0].Read {
		t.Error("expected read = true")
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
	if len(remote.setReadIDs) != 1 {
		t.Fatalf("expected one write-through, got %d", len(remote.setReadIDs))
	}
}

func TestMarkAsReadIdempotent(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: false})

	if err := s.MarkAsRead(context.Background(), "a"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := s.MarkAsRead(context.Background(), "a"); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if len(remote.setReadIDs) != 1 {
		t.Errorf("expected a single write-through, got %d", len(remote.setReadIDs))
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestMarkAsReadRollback(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: false})
	s.Ingest(model.Notification{ID: "b", Read: false})
	remote.setReadErr = errors.New("server rejected")

	if err := s.MarkAsRead(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}

	for _, n := range s.Notifications() {
		if n.Read {
			t.Errorf("notification %s read after rollback", n.ID)
		}
	}
	if got := s.UnreadCount(); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}
}

func TestMarkAllAsRead(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: false})
	s.Ingest(model.Notification{ID: "b", Read: true})
	s.Ingest(model.Notification{ID: "c", Read: false})

	if err := s.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
	if len(remote.setReadIDs) != 1 || len(remote.setReadIDs[0]) != 2 {
		t.Errorf("write-through ids = %v, want the 2 unread ids", remote.setReadIDs)
	}
}

func TestMarkAllAsReadRollbackOnlyFlipped(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: false})
	s.Ingest(model.Notification{ID: "b", Read: true})
	remote.setReadErr = errors.New("server rejected")

	if err := s.MarkAllAsRead(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	var a, b model.Notification
	for _, n := range s.Notifications() {
		switch n.ID {
		case "a":
			a = n
		case "b":
			b = n
		}
	}
	if a.Read {
		t.Error("flipped notification not rolled back")
	}
	if !b.Read {
		t.Error("already-read notification was touched by rollback")
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
}

func TestMarkAllAsReadVisibleOnly(t *testing.T) {
	s, remote := setupStore(t)

	for i := 0; i < visibleCap+3; i++ {
		s.Ingest(model.Notification{ID: string(rune('a'+i%26)) + string(rune('a'+i/26)), Read: false})
	}

	if err := s.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
	if len(remote.setReadIDs) != 1 || len(remote.setReadIDs[0]) != visibleCap {
		t.Fatalf("write-through ids = %d batches, first %d ids, want 1 batch of %d",
			len(remote.setReadIDs), len(remote.setReadIDs[0]), visibleCap)
	}

	// Entries aged past the cap keep their read state.
	agedUnread := 0
	for _, n := range s.HistoryCache() {
		if !n.Read {
			agedUnread++
		}
	}
	if agedUnread != 3 {
		t.Errorf("unread in history cache = %d, want 3", agedUnread)
	}
}

func TestMarkAllAsReadNoUnread(t *testing.T) {
	s, remote := setupStore(t)
	s.Ingest(model.Notification{ID: "a", Read: true})

	if err := s.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if len(remote.setReadIDs) != 0 {
		t.Errorf("expected no write-through, got %v", remote.setReadIDs)
	}
}

func TestVisibleSubsetOfHistory(t *testing.T) {
	s, _ := setupStore(t)
	for i := 0; i < visibleCap+5; i++ {
		s.Ingest(model.Notification{ID: string(rune('a'+i%26)) + string(rune('0'+i/26)), Read: true})
	}

	inHistory := make(map[string]bool)
	for _, n := range s.HistoryCache() {
		inHistory[n.ID] = true
	}
	for _, n := range s.Notifications() {
		if !inHistory[n.ID] {
			t.Errorf("visible notification %s missing from history cache", n.ID)
		}
	}
}
