package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oakledger/beacon/internal/api"
	"github.com/oakledger/beacon/internal/center"
	"github.com/oakledger/beacon/internal/config"
	"github.com/oakledger/beacon/internal/logging"
	"github.com/oakledger/beacon/internal/model"
	"github.com/oakledger/beacon/internal/push"
	"github.com/oakledger/beacon/internal/render"
)

const userAgent = "beacon/1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Client.LogLevel, cfg.Client.LogFormat)

	if cfg.Client.UserID == "" || cfg.Client.AccessKey == "" {
		logger.Error("client.user_id and client.access_key are required")
		os.Exit(1)
	}

	client := api.NewClient(cfg.Client.ServerURL)

	loginCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = client.Login(loginCtx, cfg.Client.UserID, cfg.Client.AccessKey)
	cancel()
	if err != nil {
		logger.Error("login failed", "server", cfg.Client.ServerURL, "error", err)
		os.Exit(1)
	}

	notifier := render.NewDesktopNotifier(cfg.Client.NotifySend)
	agent := push.NewLocalAgent(cfg.Client.ServerURL+"/api/push/local", userAgent)

	c := center.New(client, notifier, agent, center.Config{
		FeedBackoff: cfg.Client.FeedBackoff,
	}, logger)
	defer c.Close()

	c.OnSystemEvent(func(e model.SystemEvent) {
		logger.Info("system event", "type", e.Type, "action", e.Action, "target", e.Target)
	})

	c.SetUser(context.Background(), cfg.Client.UserID)
	logger.Info("session started", "user_id", cfg.Client.UserID, "unread", c.UnreadCount())

	if c.IsPushSupported() {
		if ok, reason := c.RegisterPushNotifications(context.Background()); !ok {
			logger.Warn("push registration declined", "reason", reason)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
}
