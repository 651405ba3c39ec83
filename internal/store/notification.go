// Package store owns the in-memory notification state for one user
// session: the capped visible list, the unread count, and the full history
// cache used by search.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oakledger/beacon/internal/classify"
	"github.com/oakledger/beacon/internal/model"
)

// visibleCap bounds the visible list to the most recent entries; the
// history cache is unbounded so search stays complete.
const visibleCap = 50

// Remote is the slice of the notifications API the store needs for loads
// and read-state write-through.
type Remote interface {
	List(ctx context.Context, userID string, limit int) ([]model.Record, error)
	All(ctx context.Context, userID string) ([]model.Record, error)
	SetRead(ctx context.Context, ids []string, read bool) error
}

// Store holds the visible list and history cache for the current user.
// It is the single writer for both; any number of readers may observe them
// through the copying accessors.
type Store struct {
	mu      sync.RWMutex
	userID  string
	visible []model.Notification // newest first, capped
	history []model.Notification // newest first, complete
	unread  int
	loadErr error

	remote Remote
	logger *slog.Logger
}

// New creates an empty store bound to the given remote.
func New(remote Remote, logger *slog.Logger) *Store {
	return &Store{remote: remote, logger: logger}
}

// Reset clears all state and scopes the store to userID. Called on session
// start and on logout/user switch (with an empty id).
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.visible = nil
	s.history = nil
	s.unread = 0
	s.loadErr = nil
	s.mu.Unlock()
}

// LoadInitial fetches the most recent records for the current user and
// populates the visible list and unread count. Silent records are dropped.
// A fetch that completes after the session changed is discarded.
func (s *Store) LoadInitial(ctx context.Context) error {
	s.mu.RLock()
	uid := s.userID
	s.mu.RUnlock()
	if uid == "" {
		return nil
	}

	records, err := s.remote.List(ctx, uid, visibleCap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != uid {
		// Session changed mid-flight; do not resurrect state.
		return nil
	}
	if err != nil {
		s.visible = nil
		s.unread = 0
		s.loadErr = fmt.Errorf("load notifications: %w", err)
		return s.loadErr
	}
	s.loadErr = nil
	s.visible = nil
	for _, r := range records {
		res := classify.Classify(r)
		if res.Silent {
			continue
		}
		s.visible = append(s.visible, res.Notification)
	}
	if len(s.visible) > visibleCap {
		s.visible = s.visible[:visibleCap]
	}
	s.recountLocked()
	return nil
}

// LoadAllForSearch fetches the complete non-silent history into the search
// cache. The visible list is untouched.
func (s *Store) LoadAllForSearch(ctx context.Context) error {
	s.mu.RLock()
	uid := s.userID
	s.mu.RUnlock()
	if uid == "" {
		return nil
	}

	records, err := s.remote.All(ctx, uid)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != uid {
		return nil
	}
	if err != nil {
		s.history = nil
		return fmt.Errorf("load notification history: %w", err)
	}
	s.history = nil
	for _, r := range records {
		res := classify.Classify(r)
		if res.Silent {
			continue
		}
		s.history = append(s.history, res.Notification)
	}
	return nil
}

// Ingest applies one newly classified visible notification. Records are
// de-duplicated by id, keeping the incoming read value, so replays across
// a reconnect boundary are harmless.
func (s *Store) Ingest(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = upsert(s.visible, n)
	if len(s.visible) > visibleCap {
		s.visible = s.visible[:visibleCap]
	}
	s.history = upsert(s.history, n)
	s.recountLocked()
}

// MarkAsRead optimistically flips the notification to read, then writes
// through to the server. On failure the flip is rolled back and the error
// returned. Marking an already-read notification is a no-op.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	uid := s.userID
	prev, found := s.readState(id)
	if !found || prev {
		s.mu.Unlock()
		return nil
	}
	s.setReadLocked(id, true)
	s.recountLocked()
	s.mu.Unlock()

	if err := s.remote.SetRead(ctx, []string{id}, true); err != nil {
		s.mu.Lock()
		if s.userID == uid {
			s.setReadLocked(id, false)
			s.recountLocked()
		}
		s.mu.Unlock()
		return fmt.Errorf("mark as read: %w", err)
	}
	return nil
}

// MarkAllAsRead optimistically flips every unread visible notification,
// then writes the flipped ids through in one call. On failure exactly the
// flipped ids are rolled back. Only the visible list is considered;
// entries aged past the cap into the history cache keep their read state.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	uid := s.userID
	var flipped []string
	for i := range s.visible {
		if !s.visible[i].Read {
			flipped = append(flipped, s.visible[i].ID)
		}
	}
	for _, id := range flipped {
		s.setReadLocked(id, true)
	}
	s.recountLocked()
	s.mu.Unlock()

	if len(flipped) == 0 {
		return nil
	}

	if err := s.remote.SetRead(ctx, flipped, true); err != nil {
		s.mu.Lock()
		if s.userID == uid {
			for _, id := range flipped {
				s.setReadLocked(id, false)
			}
			s.recountLocked()
		}
		s.mu.Unlock()
		return fmt.Errorf("mark all as read: %w", err)
	}
	return nil
}

// Notifications returns a copy of the visible list, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, len(s.visible))
	copy(out, s.visible)
	return out
}

// HistoryCache returns a copy of the search cache.
func (s *Store) HistoryCache() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, len(s.history))
	copy(out, s.history)
	return out
}

// UnreadCount returns the number of unread visible notifications.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// LoadError returns the error from the most recent failed initial load, or
// nil. It is cleared by the next successful load and by Reset.
func (s *Store) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// UserID returns the user the store is currently scoped to.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Store) readState(id string) (read, found bool) {
	for i := range s.visible {
		if s.visible[i].ID == id {
			return s.visible[i].Read, true
		}
	}
	for i := range s.history {
		if s.history[i].ID == id {
			return s.history[i].Read, true
		}
	}
	return false, false
}

func (s *Store) setReadLocked(id string, read bool) {
	for i := range s.visible {
		if s.visible[i].ID == id {
			s.visible[i].Read = read
		}
	}
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].Read = read
		}
	}
}

// recountLocked recomputes the unread count from the visible list. The
// list only ever holds non-silent entries, so counting unread is enough.
func (s *Store) recountLocked() {
	n := 0
	for i := range s.visible {
		if !s.visible[i].Read {
			n++
		}
	}
	s.unread = n
}

// upsert inserts n at the front of list, or replaces an existing entry
// with the same id in place.
func upsert(list []model.Notification, n model.Notification) []model.Notification {
	for i := range list {
		if list[i].ID == n.ID {
			list[i] = n
			return list
		}
	}
	return append([]model.Notification{n}, list...)
}
