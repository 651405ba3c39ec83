package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oakledger/beacon/internal/backend/database"
	"github.com/oakledger/beacon/internal/backend/server"
	"github.com/oakledger/beacon/internal/config"
	"github.com/oakledger/beacon/internal/logging"
	"github.com/oakledger/beacon/internal/webpush"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	if cfg.Server.JWTSecret == "" {
		logger.Error("server.jwt_secret is required")
		os.Exit(1)
	}
	if cfg.Server.AccessKeyHash == "" {
		logger.Error("server.access_key_hash is required")
		os.Exit(1)
	}
	if cfg.Server.VAPIDPublicKey == "" || cfg.Server.VAPIDPrivateKey == "" {
		pub, priv, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			logger.Error("generate vapid keys", "error", err)
			os.Exit(1)
		}
		cfg.Server.VAPIDPublicKey = pub
		cfg.Server.VAPIDPrivateKey = priv
		logger.Warn("generated ephemeral vapid keys, push subscriptions will not survive restarts",
			"public_key", pub)
	}

	db, err := database.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.Server.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		Port:            cfg.Server.Port,
		JWTSecret:       cfg.Server.JWTSecret,
		AccessKeyHash:   cfg.Server.AccessKeyHash,
		VAPIDPublicKey:  cfg.Server.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Server.VAPIDPrivateKey,
		PushSubscriber:  cfg.Server.PushSubscriber,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
