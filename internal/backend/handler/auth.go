package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oakledger/beacon/internal/backend/auth"
)

type AuthHandler struct {
	jwtSecret     string
	accessKeyHash string
	logger        *slog.Logger
}

func NewAuthHandler(jwtSecret, accessKeyHash string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{jwtSecret: jwtSecret, accessKeyHash: accessKeyHash, logger: logger}
}

// Token exchanges a user id plus access key for a session token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		AccessKey string `json:"access_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID == "" || req.AccessKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and access_key are required"})
		return
	}

	if !auth.VerifyAccessKey(h.accessKeyHash, req.AccessKey) {
		h.logger.Warn("access key rejected", "user_id", req.UserID)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid access key"})
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, req.UserID)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
