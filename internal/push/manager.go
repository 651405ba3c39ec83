// Package push owns the lifecycle of the client's push subscription:
// capability check, permission, subscribe, server registration, teardown,
// and the inbound message channel from the delivery agent.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oakledger/beacon/internal/event"
	"github.com/oakledger/beacon/internal/model"
)

// State of the push subscription lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateSubscribed    State = "subscribed"
	StateUnsubscribed  State = "unsubscribed"
)

// ErrNotInitialized is returned by Subscribe before Initialize succeeded.
var ErrNotInitialized = errors.New("push manager not initialized")

// ErrPermissionDenied is returned when the user declines notifications.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Transport is the narrow platform surface the manager needs. Real
// implementations bind to a browser push service or a local delivery
// agent; tests use a fake.
type Transport interface {
	// Supported reports whether the platform has a push capability at all.
	Supported() bool
	// RequestPermission asks for notification permission; granted is false
	// when the user declined.
	RequestPermission(ctx context.Context) (granted bool, err error)
	// Subscribe creates a push subscription against the given VAPID key.
	Subscribe(ctx context.Context, vapidPublicKey string) (model.PushSubscription, error)
	// Unsubscribe tears down the local subscription. Already-unsubscribed
	// is not an error.
	Unsubscribe(ctx context.Context) error
	// Messages delivers inbound agent messages (action clicks, dismissals).
	Messages() <-chan model.AgentMessage
}

// Remote is the server-side registry slice of the API client.
type Remote interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	RegisterPush(ctx context.Context, sub model.PushSubscription) error
	DeactivatePush(ctx context.Context, endpoint string) error
	SendPush(ctx context.Context, userID, title, body, tag, link string, data map[string]string) error
}

// Payload is a push message handed to SendNotification.
type Payload struct {
	Title string
	Body  string
	Tag   string
	Link  string
	Data  map[string]string
}

// Manager drives the uninitialized → initialized → subscribed ⇄
// unsubscribed state machine and dispatches inbound agent messages.
type Manager struct {
	transport Transport
	remote    Remote
	bus       *event.Bus
	logger    *slog.Logger

	mu     sync.Mutex
	state  State
	sub    *model.PushSubscription
	cancel context.CancelFunc
}

// NewManager creates a manager in the uninitialized state.
func NewManager(transport Transport, remote Remote, bus *event.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		transport: transport,
		remote:    remote,
		bus:       bus,
		logger:    logger,
		state:     StateUninitialized,
	}
}

// Initialize checks platform capability and starts the inbound message
// pump. It fails closed: unsupported platforms return false, never an
// error. Calling it again after success is a no-op returning true.
func (m *Manager) Initialize(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUninitialized {
		return true
	}
	if m.transport == nil || !m.transport.Supported() {
		m.logger.Info("push not supported on this platform")
		return false
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.pump(pumpCtx)

	m.state = StateInitialized
	return true
}

// Subscribe requests permission, creates the subscription against the
// server's VAPID key, and registers it server-side. Any step's failure
// aborts the whole operation and leaves the state unchanged.
func (m *Manager) Subscribe(ctx context.Context) (model.PushSubscription, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case StateInitialized, StateUnsubscribed:
	case StateSubscribed:
		m.mu.Lock()
		defer m.mu.Unlock()
		return *m.sub, nil
	default:
		return model.PushSubscription{}, ErrNotInitialized
	}

	granted, err := m.transport.RequestPermission(ctx)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("request permission: %w", err)
	}
	if !granted {
		return model.PushSubscription{}, ErrPermissionDenied
	}

	key, err := m.remote.VAPIDPublicKey(ctx)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("fetch vapid key: %w", err)
	}

	sub, err := m.transport.Subscribe(ctx, key)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("create subscription: %w", err)
	}

	if err := m.remote.RegisterPush(ctx, sub); err != nil {
		// No dangling client-side subscription without a server record.
		if uerr := m.transport.Unsubscribe(ctx); uerr != nil {
			m.logger.Warn("rollback unsubscribe failed", "error", uerr)
		}
		return model.PushSubscription{}, fmt.Errorf("register subscription: %w", err)
	}

	m.mu.Lock()
	m.state = StateSubscribed
	m.sub = &sub
	m.mu.Unlock()
	return sub, nil
}

// Unsubscribe tears down the local subscription first, then marks it
// inactive server-side. Already-unsubscribed is success.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateSubscribed {
		m.mu.Unlock()
		return nil
	}
	endpoint := m.sub.Endpoint
	m.mu.Unlock()

	if err := m.transport.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	if err := m.remote.DeactivatePush(ctx, endpoint); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}

	m.mu.Lock()
	m.state = StateUnsubscribed
	m.sub = nil
	m.mu.Unlock()
	return nil
}

// SendNotification asks the server to dispatch a push to userID. The raw
// transport error never reaches the caller; failures are logged.
func (m *Manager) SendNotification(ctx context.Context, userID string, p Payload) bool {
	if err := m.remote.SendPush(ctx, userID, p.Title, p.Body, p.Tag, p.Link, p.Data); err != nil {
		m.logger.Error("push dispatch failed", "user_id", userID, "error", err)
		return false
	}
	return true
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscription returns the live subscription handle, or nil.
func (m *Manager) Subscription() *model.PushSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return nil
	}
	sub := *m.sub
	return &sub
}

// Close stops the inbound message pump.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) pump(ctx context.Context) {
	msgs := m.transport.Messages()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			m.dispatch(msg)
		case <-ctx.Done():
			return
		}
	}
}

// dispatch routes one agent message. Unknown types and actions are logged
// and ignored, never fatal.
func (m *Manager) dispatch(msg model.AgentMessage) {
	switch msg.Type {
	case model.MsgNotificationAction:
		m.handleAction(msg)
	case model.MsgNotificationClosed:
		m.bus.Publish(model.SystemEvent{
			Type:   "push_diagnostic",
			Action: "closed",
			Target: msg.NotificationID,
			Data:   msg.Data,
		})
	default:
		m.logger.Warn("unknown agent message type", "type", msg.Type)
	}
}

func (m *Manager) handleAction(msg model.AgentMessage) {
	navigate := func(target string) {
		m.bus.Publish(model.SystemEvent{
			Type:   "navigation",
			Action: "navigate",
			Target: target,
			Data:   map[string]string{"notification_id": msg.NotificationID},
		})
	}

	switch msg.Action {
	case model.ActionValidate:
		navigate("/validations/" + msg.NotificationID + "?decision=approve")
	case model.ActionReject:
		navigate("/validations/" + msg.NotificationID + "?decision=reject")
	case model.ActionSecure:
		navigate("/security")
	case model.ActionView:
		if link, ok := msg.Data["link"]; ok && link != "" {
			navigate(link)
			return
		}
		navigate("/notifications/" + msg.NotificationID)
	default:
		m.logger.Warn("unknown notification action", "action", msg.Action)
	}
}
