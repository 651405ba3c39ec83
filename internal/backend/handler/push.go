package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oakledger/beacon/internal/backend/auth"
	"github.com/oakledger/beacon/internal/backend/store"
	"github.com/oakledger/beacon/internal/model"
	"github.com/oakledger/beacon/internal/webpush"
)

// Pusher sends a web push message to one subscription.
type Pusher interface {
	VAPIDPublicKey() string
	Send(sub model.PushSubscription, payload webpush.Payload) error
}

type PushHandler struct {
	store  *store.PushStore
	pusher Pusher
	logger *slog.Logger
}

func NewPushHandler(s *store.PushStore, pusher Pusher, logger *slog.Logger) *PushHandler {
	return &PushHandler{store: s, pusher: pusher, logger: logger}
}

// VAPIDKey returns the public key clients need to create subscriptions.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.pusher.VAPIDPublicKey()})
}

// Register stores (or reactivates) a push subscription for the
// authenticated user.
func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	var sub model.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if sub.Endpoint == "" || sub.P256dhKey == "" || sub.AuthKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint and keys are required"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.store.Upsert(userID, sub); err != nil {
		h.logger.Error("register push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register subscription"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Deactivate marks a subscription inactive.
func (h *PushHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint is required"})
		return
	}

	if err := h.store.Deactivate(req.Endpoint); err != nil {
		h.logger.Error("deactivate push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate subscription"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// Send dispatches a push message to every active subscription of a user.
func (h *PushHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Tag    string `json:"tag"`
		Link   string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	sent := h.Dispatch(req.UserID, webpush.Payload{
		Title: req.Title,
		Body:  req.Body,
		Tag:   req.Tag,
		URL:   req.Link,
	})
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

// Dispatch sends payload to each of the user's active subscriptions,
// deactivating expired ones, and returns the number delivered.
func (h *PushHandler) Dispatch(userID string, payload webpush.Payload) int {
	subs, err := h.store.ListActiveByUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		err := h.pusher.Send(sub, payload)
		switch {
		case errors.Is(err, webpush.ErrExpired):
			h.logger.Info("push subscription expired", "endpoint", sub.Endpoint)
			if derr := h.store.Deactivate(sub.Endpoint); derr != nil {
				h.logger.Error("deactivate expired subscription", "error", derr)
			}
		case err != nil:
			h.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		default:
			sent++
		}
	}
	return sent
}
