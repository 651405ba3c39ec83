package model

import "time"

// Delivery-agent message types posted back to the push manager.
const (
	MsgNotificationAction = "NOTIFICATION_ACTION"
	MsgNotificationClosed = "NOTIFICATION_CLOSED"
)

// Known notification actions carried by NOTIFICATION_ACTION messages.
const (
	ActionValidate = "validate"
	ActionReject   = "reject"
	ActionSecure   = "secure"
	ActionView     = "view"
)

// PushSubscription identifies a web-push delivery channel. The endpoint URL
// is the identity; the keys are opaque material owned by the delivery agent.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	UserAgent string    `json:"user_agent,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentMessage is posted by the delivery agent back to the push manager
// (action clicks, dismissals).
type AgentMessage struct {
	Type           string            `json:"type"`
	Action         string            `json:"action,omitempty"`
	NotificationID string            `json:"notification_id,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
}
