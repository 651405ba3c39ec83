package model

import "time"

// Priority levels for visible notifications.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Category constants used by the change feed and the template catalog.
const (
	CategoryTransaction = "transaction"
	CategoryRecharge    = "recharge"
	CategoryValidation  = "validation"
	CategorySecurity    = "security"
	CategorySystem      = "system"
)

// Record is a raw row from the change feed or the notifications API, before
// classification. Silent is a pointer so a missing field can be told apart
// from an explicit false.
type Record struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Type       string            `json:"type,omitempty"`
	Text       string            `json:"text"`
	Icon       string            `json:"icon,omitempty"`
	Link       string            `json:"link,omitempty"`
	Read       bool              `json:"read"`
	TemplateID string            `json:"template_id,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Category   string            `json:"category,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Silent     *bool             `json:"silent,omitempty"`
	Action     string            `json:"action,omitempty"`
	Target     string            `json:"target,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Notification is a normalized, user-visible notification.
type Notification struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Type       string            `json:"type,omitempty"`
	Text       string            `json:"text"`
	Icon       string            `json:"icon,omitempty"`
	Link       string            `json:"link,omitempty"`
	Read       bool              `json:"read"`
	TemplateID string            `json:"template_id,omitempty"`
	Priority   string            `json:"priority"`
	Category   string            `json:"category,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SystemEvent is an ephemeral in-process signal produced from a silent
// change-feed record. It is never persisted and never shown to the user.
type SystemEvent struct {
	Type      string            `json:"type"`
	Action    string            `json:"action"`
	Target    string            `json:"target"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ConnectionState reflects the health of the change-feed subscription.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateReconnecting ConnectionState = "reconnecting"
	StateConnected    ConnectionState = "connected"
)
