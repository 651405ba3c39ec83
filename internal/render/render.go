// Package render turns visible notifications into native OS prompts,
// negotiating display permission and handling auto-dismissal and clicks.
package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oakledger/beacon/internal/catalog"
	"github.com/oakledger/beacon/internal/event"
	"github.com/oakledger/beacon/internal/model"
)

// Permission is the native notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Auto-dismiss timeouts.
const (
	dismissUrgent  = 10 * time.Second
	dismissDefault = 5 * time.Second
)

// Prompt is a fully resolved native notification.
type Prompt struct {
	Tag                string // notification id; repeats replace rather than stack
	Title              string
	Body               string
	Icon               string
	Link               string
	Vibration          []int
	RequireInteraction bool
	Actions            []model.TemplateAction
}

// Notifier is the platform notification surface. Real implementations bind
// to the OS; tests use a fake.
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, p Prompt) error
	Close(tag string)
}

// Renderer displays visible notifications. Every failure is caught and
// logged; rendering never interrupts the classification pipeline.
type Renderer struct {
	notifier Notifier
	catalog  *catalog.Catalog
	bus      *event.Bus
	logger   *slog.Logger

	mu     sync.Mutex
	denied bool
	timers map[string]*time.Timer
}

// New creates a renderer. The bus receives navigation intents from clicks.
func New(notifier Notifier, cat *catalog.Catalog, bus *event.Bus, logger *slog.Logger) *Renderer {
	return &Renderer{
		notifier: notifier,
		catalog:  cat,
		bus:      bus,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Render displays n as a native prompt. If permission is still default, it
// is requested once; granted renders immediately, denied abandons this and
// all subsequent notifications until the user changes platform settings.
func (r *Renderer) Render(ctx context.Context, n model.Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("renderer panicked", "id", n.ID, "panic", rec)
		}
	}()

	r.mu.Lock()
	denied := r.denied
	r.mu.Unlock()
	if denied {
		return
	}

	perm := r.notifier.Permission()
	if perm == PermissionDefault {
		var err error
		perm, err = r.notifier.RequestPermission(ctx)
		if err != nil {
			r.logger.Warn("notification permission request failed", "error", err)
			return
		}
	}
	switch perm {
	case PermissionGranted:
	case PermissionDenied:
		r.mu.Lock()
		r.denied = true
		r.mu.Unlock()
		r.logger.Info("notification permission denied; rendering disabled")
		return
	default:
		return
	}

	prompt := r.resolve(n)
	if err := r.notifier.Show(ctx, prompt); err != nil {
		r.logger.Error("notification display failed", "id", n.ID, "error", err)
		return
	}

	r.scheduleDismiss(prompt.Tag, dismissAfter(n))
}

// HandleClick reacts to a prompt click: it broadcasts a navigation intent
// when the notification carries a deep link, then closes the prompt. The
// host UI consumes the intent; the renderer never navigates itself.
func (r *Renderer) HandleClick(n model.Notification) {
	if n.Link != "" {
		r.bus.Publish(model.SystemEvent{
			Type:   "navigation",
			Action: "navigate",
			Target: n.Link,
			Data:   map[string]string{"notification_id": n.ID},
		})
	}
	r.dismiss(n.ID)
}

// Reset cancels pending dismissals. The denied latch survives: the user
// has to change platform settings, not sessions.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tag, timer := range r.timers {
		timer.Stop()
		delete(r.timers, tag)
	}
}

func (r *Renderer) resolve(n model.Notification) Prompt {
	title, body := r.catalog.Render(n)
	var actions []model.TemplateAction
	var icon string
	if t, ok := r.catalog.Get(n.TemplateID); ok {
		actions = t.Actions
		icon = t.Icon
	}
	if icon == "" {
		icon = n.Icon
	}
	return Prompt{
		Tag:                n.ID,
		Title:              title,
		Body:               body,
		Icon:               icon,
		Link:               n.Link,
		Vibration:          r.catalog.Vibration(n),
		RequireInteraction: requiresInteraction(n),
		Actions:            actions,
	}
}

func (r *Renderer) scheduleDismiss(tag string, after time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.timers[tag]; ok {
		prev.Stop()
	}
	r.timers[tag] = time.AfterFunc(after, func() {
		r.dismiss(tag)
	})
}

func (r *Renderer) dismiss(tag string) {
	r.mu.Lock()
	if timer, ok := r.timers[tag]; ok {
		timer.Stop()
		delete(r.timers, tag)
	}
	r.mu.Unlock()
	r.notifier.Close(tag)
}

func requiresInteraction(n model.Notification) bool {
	return n.Priority == model.PriorityUrgent || n.Category == model.CategoryValidation
}

func dismissAfter(n model.Notification) time.Duration {
	if requiresInteraction(n) {
		return dismissUrgent
	}
	return dismissDefault
}
