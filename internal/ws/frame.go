// Package ws carries the change feed over WebSocket: the wire frames shared
// by client and server, and the server-side hub that routes notification
// inserts to the owning user's connections.
package ws

import "github.com/oakledger/beacon/internal/model"

// Frame types exchanged on the feed.
const (
	FrameSubscribe    = "subscribe"    // client → server, carries UserID
	FrameAck          = "ack"          // server → client, subscription confirmed
	FrameNotification = "notification" // server → client, carries Record
	FrameError        = "error"        // server → client, carries Error
)

// Frame is one message on the feed connection.
type Frame struct {
	Type   string        `json:"type"`
	UserID string        `json:"user_id,omitempty"`
	Record *model.Record `json:"record,omitempty"`
	Error  string        `json:"error,omitempty"`
}
