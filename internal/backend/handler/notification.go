package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oakledger/beacon/internal/backend/auth"
	"github.com/oakledger/beacon/internal/backend/store"
	"github.com/oakledger/beacon/internal/classify"
	"github.com/oakledger/beacon/internal/model"
	"github.com/oakledger/beacon/internal/webpush"
	"github.com/oakledger/beacon/internal/ws"
)

const (
	defaultListLimit   = 50
	defaultHistorySize = 20
)

type NotificationHandler struct {
	store  *store.NotificationStore
	hub    *ws.Hub
	push   *PushHandler
	logger *slog.Logger
}

func NewNotificationHandler(s *store.NotificationStore, hub *ws.Hub, push *PushHandler, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: s, hub: hub, push: push, logger: logger}
}

// List returns the user's records, newest first. With all=true the full log
// is returned; otherwise limit applies (default 50).
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if r.URL.Query().Get("all") == "true" {
		limit = 0
	} else if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.store.ListByUser(userID, limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// History returns one page of the user's log plus the total count.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
			return
		}
		page = n
	}
	pageSize := defaultHistorySize
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page_size"})
			return
		}
		pageSize = n
	}

	records, total, err := h.store.Page(userID, (page-1)*pageSize, pageSize)
	if err != nil {
		h.logger.Error("notification history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}

	items := make([]model.Notification, 0, len(records))
	for _, rec := range records {
		items = append(items, classify.Normalize(rec))
	}
	writeJSON(w, http.StatusOK, model.HistoryPage{Items: items, Total: total})
}

// SetRead updates the read flag on a batch of the user's notifications.
func (h *NotificationHandler) SetRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs  []string `json:"ids"`
		Read bool     `json:"read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids are required"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.store.SetRead(userID, req.IDs, req.Read); err != nil {
		h.logger.Error("set read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update read state"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Ingest accepts a record from a producer, persists it, fans it out over
// the change feed, and pushes visible records to the user's subscriptions.
func (h *NotificationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if rec.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	if rec.Text == "" && (rec.Silent == nil || !*rec.Silent) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required for visible records"})
		return
	}

	stored, err := h.store.Insert(rec)
	if err != nil {
		h.logger.Error("insert notification", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store notification"})
		return
	}

	h.hub.Publish(stored)

	res := classify.Classify(stored)
	if !res.Silent {
		n := res.Notification
		sent := h.push.Dispatch(n.UserID, webpush.Payload{
			Title:    "Beacon",
			Body:     n.Text,
			URL:      n.Link,
			Tag:      n.ID,
			Icon:     n.Icon,
			Priority: n.Priority,
		})
		h.logger.Debug("notification pushed", "id", n.ID, "sent", sent)
	}

	writeJSON(w, http.StatusCreated, stored)
}

// requestUser resolves the user_id query parameter against the
// authenticated user. Requests for other users are rejected.
func (h *NotificationHandler) requestUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = auth.UserID(r.Context())
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return "", false
	}
	if authed := auth.UserID(r.Context()); authed != "" && authed != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "user_id does not match session"})
		return "", false
	}
	return userID, true
}
