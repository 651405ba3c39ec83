// Package classify splits raw change-feed records into silent system events
// and normalized user-visible notifications.
package classify

import (
	"github.com/oakledger/beacon/internal/model"
)

// Result of classifying one record. Exactly one of Event/Notification is
// meaningful, selected by Silent.
type Result struct {
	Silent       bool
	Event        model.SystemEvent
	Notification model.Notification
}

// Classify normalizes r and decides whether it is a silent system event or
// a visible notification. A record with no silent field at all is treated
// as visible; FlagMissing reports that case so callers can log it.
func Classify(r model.Record) Result {
	if r.Silent != nil && *r.Silent {
		return Result{Silent: true, Event: ToEvent(r)}
	}
	return Result{Notification: Normalize(r)}
}

// FlagMissing reports whether the record omits the silent flag entirely.
func FlagMissing(r model.Record) bool {
	return r.Silent == nil
}

// Normalize fills defaults on a visible record: priority falls back to
// normal and unknown priorities are coerced to normal.
func Normalize(r model.Record) model.Notification {
	priority := r.Priority
	switch priority {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
	default:
		priority = model.PriorityNormal
	}
	return model.Notification{
		ID:         r.ID,
		UserID:     r.UserID,
		Type:       r.Type,
		Text:       r.Text,
		Icon:       r.Icon,
		Link:       r.Link,
		Read:       r.Read,
		TemplateID: r.TemplateID,
		Priority:   priority,
		Category:   r.Category,
		Metadata:   r.Metadata,
		CreatedAt:  r.CreatedAt,
	}
}

// ToEvent converts a silent record into its system event form. The event is
// ephemeral: it is delivered to subscribers and retained only in the
// diagnostic ring, never stored or displayed.
func ToEvent(r model.Record) model.SystemEvent {
	return model.SystemEvent{
		Type:      r.Type,
		Action:    r.Action,
		Target:    r.Target,
		Data:      eventData(r),
		Timestamp: r.CreatedAt,
	}
}

func eventData(r model.Record) map[string]string {
	if r.EntityID == "" {
		return r.Metadata
	}
	data := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		data[k] = v
	}
	data["entity_id"] = r.EntityID
	return data
}
