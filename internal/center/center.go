// Package center assembles the notification core for one user session:
// change feed, classifier, store, renderer, pub/sub bus, and push manager,
// behind the consumer-facing contract the host UI reads.
package center

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oakledger/beacon/internal/catalog"
	"github.com/oakledger/beacon/internal/classify"
	"github.com/oakledger/beacon/internal/event"
	"github.com/oakledger/beacon/internal/feed"
	"github.com/oakledger/beacon/internal/model"
	"github.com/oakledger/beacon/internal/push"
	"github.com/oakledger/beacon/internal/render"
	"github.com/oakledger/beacon/internal/search"
	"github.com/oakledger/beacon/internal/store"
)

// Remote is the full backend surface the center consumes.
type Remote interface {
	store.Remote
	push.Remote
	History(ctx context.Context, userID string, page, pageSize int) (model.HistoryPage, error)
	FeedURL() string
	Token() string
}

// Config holds session-independent settings. FeedDialer is optional and
// defaults to the real WebSocket dialer.
type Config struct {
	FeedBackoff time.Duration
	FeedDialer  feed.Dialer
}

// Center is the process-wide notification state for the running session.
// It is constructed once and rescoped through SetUser; the bus and its
// subscribers survive session changes, everything else is torn down.
type Center struct {
	cfg      Config
	remote   Remote
	bus      *event.Bus
	catalog  *catalog.Catalog
	store    *store.Store
	renderer *render.Renderer
	logger   *slog.Logger

	transport push.Transport

	mu      sync.Mutex
	userID  string
	feed    *feed.Client
	pushMgr *push.Manager
}

// New creates a center with no active session.
func New(remote Remote, notifier render.Notifier, transport push.Transport, cfg Config, logger *slog.Logger) *Center {
	bus := event.NewBus(logger.With("component", "bus"))
	cat := catalog.Default()
	return &Center{
		cfg:       cfg,
		remote:    remote,
		bus:       bus,
		catalog:   cat,
		store:     store.New(remote, logger.With("component", "store")),
		renderer:  render.New(notifier, cat, bus, logger.With("component", "render")),
		logger:    logger,
		transport: transport,
	}
}

// SetUser rescopes the center to userID: the previous session is fully
// torn down, then the store is reloaded and the feed resubscribed. An
// empty id is a logout. Load failures are component-local: they are
// logged, the lists default to empty, and the session stays up.
func (c *Center) SetUser(ctx context.Context, userID string) {
	c.mu.Lock()
	if c.userID == userID {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.userID = userID
	if userID == "" {
		c.mu.Unlock()
		return
	}

	c.store.Reset(userID)

	c.pushMgr = push.NewManager(c.transport, c.remote, c.bus, c.logger.With("component", "push"))

	fc := feed.NewClient(feed.Config{
		URL:     c.remote.FeedURL(),
		Token:   c.remote.Token(),
		UserID:  userID,
		Backoff: c.cfg.FeedBackoff,
		Dialer:  c.cfg.FeedDialer,
	}, c.handleRecord, nil, c.logger.With("component", "feed"))
	c.feed = fc
	c.mu.Unlock()

	if err := c.store.LoadInitial(ctx); err != nil {
		c.logger.Warn("initial notification load failed", "error", err)
	}
	if err := c.store.LoadAllForSearch(ctx); err != nil {
		c.logger.Warn("history cache load failed", "error", err)
	}

	fc.Start(ctx)
}

// Close tears down the active session. Bus subscribers persist; they are
// wired once at provider construction time by design.
func (c *Center) Close() {
	c.mu.Lock()
	c.teardownLocked()
	c.userID = ""
	c.mu.Unlock()
}

func (c *Center) teardownLocked() {
	if c.feed != nil {
		c.feed.Stop()
		c.feed = nil
	}
	if c.pushMgr != nil {
		c.pushMgr.Close()
		c.pushMgr = nil
	}
	c.store.Reset("")
	c.bus.ClearHistory()
	c.renderer.Reset()
}

// handleRecord runs on the feed goroutine, preserving arrival order into
// the store. Rendering can block on a permission prompt, so it runs on its
// own goroutine.
func (c *Center) handleRecord(r model.Record) {
	if classify.FlagMissing(r) {
		c.logger.Debug("record missing silent flag, treating as visible", "id", r.ID)
	}
	res := classify.Classify(r)
	if res.Silent {
		c.bus.Publish(res.Event)
		return
	}
	c.store.Ingest(res.Notification)
	go c.renderer.Render(context.Background(), res.Notification)
}

// Notifications returns the capped visible list, newest first.
func (c *Center) Notifications() []model.Notification {
	return c.store.Notifications()
}

// UnreadCount returns the number of unread visible notifications.
func (c *Center) UnreadCount() int {
	return c.store.UnreadCount()
}

// ConnectionStatus returns the change-feed health.
func (c *Center) ConnectionStatus() model.ConnectionState {
	c.mu.Lock()
	fc := c.feed
	c.mu.Unlock()
	if fc == nil {
		return model.StateDisconnected
	}
	return fc.State()
}

// SystemEvents returns the diagnostic ring of recent silent events.
func (c *Center) SystemEvents() []model.SystemEvent {
	return c.bus.History()
}

// Templates returns the read-only template catalog.
func (c *Center) Templates() map[string]model.Template {
	return c.catalog.All()
}

// MarkAsRead optimistically marks one notification read.
func (c *Center) MarkAsRead(ctx context.Context, id string) error {
	return c.store.MarkAsRead(ctx, id)
}

// MarkAllAsRead optimistically marks every unread visible notification read.
func (c *Center) MarkAllAsRead(ctx context.Context) error {
	return c.store.MarkAllAsRead(ctx)
}

// OnSystemEvent registers a silent-event subscriber and returns its
// unsubscribe function.
func (c *Center) OnSystemEvent(fn func(model.SystemEvent)) func() {
	return c.bus.Subscribe(fn)
}

// TriggerRefresh publishes a manual refresh event for target.
func (c *Center) TriggerRefresh(target string, data map[string]string) {
	c.bus.Trigger(target, data)
}

// SearchNotifications filters the full-history cache in memory.
func (c *Center) SearchNotifications(filters model.SearchFilters) []model.Notification {
	return search.Apply(c.store.HistoryCache(), filters)
}

// NotificationHistory fetches one server-side page of the log.
func (c *Center) NotificationHistory(ctx context.Context, page, pageSize int) (model.HistoryPage, error) {
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()
	if userID == "" {
		return model.HistoryPage{}, fmt.Errorf("no active session")
	}
	return c.remote.History(ctx, userID, page, pageSize)
}

// IsPushSupported reports whether the platform offers a push capability.
func (c *Center) IsPushSupported() bool {
	return c.transport != nil && c.transport.Supported()
}

// RegisterPushNotifications runs the full push registration flow. It never
// returns an error: failure is a false plus a human-readable reason.
func (c *Center) RegisterPushNotifications(ctx context.Context) (bool, string) {
	c.mu.Lock()
	mgr := c.pushMgr
	c.mu.Unlock()
	if mgr == nil {
		return false, "no active session"
	}
	if !mgr.Initialize(ctx) {
		return false, "push notifications are not supported on this platform"
	}
	if _, err := mgr.Subscribe(ctx); err != nil {
		c.logger.Warn("push registration failed", "error", err)
		return false, "could not register for push notifications"
	}
	return true, ""
}

// UnregisterPushNotifications tears the subscription down locally and
// server-side.
func (c *Center) UnregisterPushNotifications(ctx context.Context) (bool, string) {
	c.mu.Lock()
	mgr := c.pushMgr
	c.mu.Unlock()
	if mgr == nil {
		return true, ""
	}
	if err := mgr.Unsubscribe(ctx); err != nil {
		c.logger.Warn("push unregistration failed", "error", err)
		return false, "could not unregister push notifications"
	}
	return true, ""
}

// PushSubscription returns the live subscription handle, or nil.
func (c *Center) PushSubscription() *model.PushSubscription {
	c.mu.Lock()
	mgr := c.pushMgr
	c.mu.Unlock()
	if mgr == nil {
		return nil
	}
	return mgr.Subscription()
}
