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

	"trading-journal/internal/backend"
	"trading-journal/internal/config"
	"trading-journal/internal/database"
	"trading-journal/internal/journal"
	"trading-journal/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Connect to the local database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db)
	stored, err := store.Count(ctx)
	if err != nil {
		log.Fatal("Failed to read local store", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.",
		zap.String("dsn", cfg.Database.DSN),
		zap.Int64("stored_trades", stored),
	)

	// Hosted backend, needed for the remote source and for the mirror
	var remote *backend.Client
	if cfg.Backend.URL != "" {
		remote = backend.NewClient(&cfg.Backend, log)
		pingCtx, pingCancel := context.WithTimeout(ctx, 15*time.Second)
		err := remote.Ping(pingCtx)
		pingCancel()
		switch {
		case err != nil && cfg.Journal.Source == config.SourceRemote:
			log.Fatal("Failed to connect to hosted backend", zap.Error(err))
		case err != nil:
			log.Warn("Hosted backend unreachable, serving the local store", zap.Error(err))
		default:
			log.Info("Successfully connected to hosted backend.")
		}
	}

	var source journal.TradeSource = store
	if cfg.Journal.Source == config.SourceRemote {
		source = remote
	}

	svc, err := journal.NewService(source, &cfg, log)
	if err != nil {
		log.Fatal("Failed to create journal service", zap.Error(err))
	}
	log.Info("Journal service ready", zap.String("source", svc.SourceName()))

	if cfg.Mirror.Enabled {
		mirror := journal.NewMirror(log, remote, store, cfg.Mirror.Interval)
		if cfg.Journal.Source == config.SourceLocal {
			mirror.OnSync = func(int) { svc.Invalidate() }
		}
		go mirror.Run(ctx)
	}

	apiHandler := NewAPIHandler(log, svc)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           apiHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Web server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting web server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Web server failed", zap.Error(err))
	}

	log.Info("Journal has been shut down.")
}
