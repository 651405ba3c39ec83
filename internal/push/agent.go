package push

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/beacon/internal/model"
)

// LocalAgent is an in-process delivery agent for platforms without a
// browser push service: it mints its own subscription key material and
// relays agent messages over a channel. The daemon uses it so the push
// lifecycle works end to end; tests use it as a controllable transport.
type LocalAgent struct {
	endpointBase string
	userAgent    string

	mu       sync.Mutex
	sub      *model.PushSubscription
	messages chan model.AgentMessage
}

// NewLocalAgent creates an agent whose endpoints live under endpointBase
// (e.g. the backend's push ingestion URL).
func NewLocalAgent(endpointBase, userAgent string) *LocalAgent {
	return &LocalAgent{
		endpointBase: endpointBase,
		userAgent:    userAgent,
		messages:     make(chan model.AgentMessage, 16),
	}
}

func (a *LocalAgent) Supported() bool { return true }

func (a *LocalAgent) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// Subscribe mints a fresh endpoint and key pair. The keys are opaque to
// everything but the web-push sender.
func (a *LocalAgent) Subscribe(ctx context.Context, vapidPublicKey string) (model.PushSubscription, error) {
	if vapidPublicKey == "" {
		return model.PushSubscription{}, fmt.Errorf("empty vapid key")
	}

	p256dh, err := randomKey(65)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("generate p256dh key: %w", err)
	}
	auth, err := randomKey(16)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("generate auth secret: %w", err)
	}

	sub := model.PushSubscription{
		Endpoint:  a.endpointBase + "/" + uuid.NewString(),
		P256dhKey: p256dh,
		AuthKey:   auth,
		UserAgent: a.userAgent,
		Active:    true,
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	a.sub = &sub
	a.mu.Unlock()
	return sub, nil
}

func (a *LocalAgent) Unsubscribe(ctx context.Context) error {
	a.mu.Lock()
	a.sub = nil
	a.mu.Unlock()
	return nil
}

func (a *LocalAgent) Messages() <-chan model.AgentMessage {
	return a.messages
}

// Post delivers an agent message to the manager, dropping it when the
// buffer is full rather than blocking the caller.
func (a *LocalAgent) Post(msg model.AgentMessage) {
	select {
	case a.messages <- msg:
	default:
	}
}

func randomKey(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
