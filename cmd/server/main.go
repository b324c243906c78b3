package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/auth"
	"github.com/baljotchohan/Trade-Track-App/internal/config"
	"github.com/baljotchohan/Trade-Track-App/internal/database"
	"github.com/baljotchohan/Trade-Track-App/internal/logger"
	"github.com/baljotchohan/Trade-Track-App/internal/server"
	"github.com/baljotchohan/Trade-Track-App/internal/storage"
	"github.com/baljotchohan/Trade-Track-App/internal/trace"
	"go.uber.org/zap"
)

const sessionPurgeInterval = time.Hour

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize tracing
	if err := trace.Init(); err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated",
		zap.String("driver", cfg.Database.Driver))

	// Initialize the identity provider client
	provider, err := auth.NewProvider(&cfg.Auth, log.Named("auth"))
	if err != nil {
		log.Fatal("Failed to configure identity provider", zap.Error(err))
	}

	repo := storage.NewRepository(db, log.Named("storage"))
	sessionTTL := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	sessions := auth.NewSessionStore(db, log.Named("auth"), sessionTTL)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	go sessions.PurgeLoop(ctx, sessionPurgeInterval)

	srv := server.NewServer(&cfg, log.Named("server"), repo, provider, sessions)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
