package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitstudio/internal/chat"
	"fitstudio/internal/config"
	"fitstudio/internal/db"
	"fitstudio/internal/email"
	"fitstudio/internal/logger"
	"fitstudio/internal/notification"
	"fitstudio/internal/payment"
	"fitstudio/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title FitStudio API
// @version 1.0
// @description Training sessions, Stripe payments and trainer chat for a fitness studio.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting FitStudio application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		logger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
	}
	logger.Info("Redis connected", "addr", cfg.RedisAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailService := email.New(rdb, email.Options{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	})
	go emailService.Start(ctx)

	go notification.NewWorker(rdb, notification.NewRepository(database)).Start(ctx)

	hub := chat.NewHub()
	go hub.Run(ctx)

	provider, err := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.PaymentProviderTimeout,
	})
	if err != nil {
		logger.Fatalf("Failed to configure payment provider: %v", err)
	}

	srv := server.New(ctx, cfg, server.Deps{
		DB:       database,
		Email:    emailService,
		Notifier: notification.NewDispatcher(rdb),
		Hub:      hub,
		Provider: provider,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()

	logger.Info("Server stopped")
}
