// Package server wires the beacond stores, feed hub, and HTTP API together.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oakledger/beacon/internal/backend/handler"
	"github.com/oakledger/beacon/internal/backend/middleware"
	"github.com/oakledger/beacon/internal/backend/store"
	"github.com/oakledger/beacon/internal/webpush"
	"github.com/oakledger/beacon/internal/ws"
)

type Config struct {
	Port            string
	JWTSecret       string
	AccessKeyHash   string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
}

type Server struct {
	db            *sql.DB
	cfg           Config
	hub           *ws.Hub
	authH         *handler.AuthHandler
	notificationH *handler.NotificationHandler
	pushH         *handler.PushHandler
	logger        *slog.Logger

	httpServer *http.Server
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "feed"))
	sender := webpush.NewSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)

	pushH := handler.NewPushHandler(store.NewPushStore(db), sender, logger.With("component", "push"))
	notificationH := handler.NewNotificationHandler(store.NewNotificationStore(db), hub, pushH, logger.With("component", "notifications"))
	authH := handler.NewAuthHandler(cfg.JWTSecret, cfg.AccessKeyHash, logger.With("component", "auth"))

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		authH:         authH,
		notificationH: notificationH,
		pushH:         pushH,
		logger:        logger,
	}
}

// Hub exposes the feed hub, mainly for tests and embedded producers.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /api/auth/token", s.authH.Token)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/notifications", s.notificationH.List)
	api.HandleFunc("POST /api/notifications", s.notificationH.Ingest)
	api.HandleFunc("GET /api/notifications/history", s.notificationH.History)
	api.HandleFunc("PATCH /api/notifications/read", s.notificationH.SetRead)
	api.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	api.HandleFunc("POST /api/push/subscriptions", s.pushH.Register)
	api.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Deactivate)
	api.HandleFunc("POST /api/push/send", s.pushH.Send)
	api.Handle("GET /api/feed", ws.Handler(s.hub, s.logger.With("component", "feed")))

	mux.Handle("/api/", middleware.RequireAuth(s.cfg.JWTSecret)(api))

	return mux
}

// Start runs the HTTP server until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server listening", "port", s.cfg.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
