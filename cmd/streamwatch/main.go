// Command streamwatch is the live-stream watch server: it polls the
// channel's live status during service windows, sends deduplicated
// notifications, arms weekly service reminders, and serves the control API.
//
// Usage:
//
//	streamwatch
//	API_PORT=8080 YOUTUBE_API_KEY=... streamwatch
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/powellbutte/streamwatch/internal/api"
	"github.com/powellbutte/streamwatch/internal/config"
	"github.com/powellbutte/streamwatch/internal/db"
	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/monitor"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/planner"
	"github.com/powellbutte/streamwatch/internal/playback"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// State store: Postgres when configured, otherwise in-memory. State
	// loss on restart only costs at most one duplicate notification, so a
	// database-less deployment stays functional.
	var store kvstore.Store
	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		logger.Info("Connecting to database...")
		pool, err = db.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = kvstore.NewPostgres(pool.Pool)
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		store = kvstore.NewMemory()
		logger.Warn("No DATABASE_URL set, state is in-memory only")
	}

	// Notification pipeline
	var emitter notify.Emitter
	if webhook := notify.NewWebhookEmitter(cfg.NotifyWebhookURL, logger); webhook != nil {
		emitter = webhook
		logger.Info("Webhook notification delivery enabled")
	} else {
		emitter = notify.NewLogEmitter(logger)
		logger.Info("No NOTIFY_WEBHOOK_URL set, notifications are logged only")
	}
	deduper := notify.NewDeduper(store, cfg.LiveCooldown, logger)

	// Live-status oracle
	oc := oracle.NewClient(cfg.YouTubeAPIKey, cfg.YouTubeChannelID, cfg.ProbeTimeout)
	if !oc.IsConfigured() {
		logger.Warn("No YOUTUBE_API_KEY set, live probing disabled")
	}

	// Polling monitor
	mon := monitor.New(monitor.Config{
		Interval:     cfg.PollInterval,
		ProbeTimeout: cfg.ProbeTimeout,
		Windows:      cfg.Windows(),
		Location:     cfg.Location(),
	}, oc, deduper, emitter, store, logger)
	mon.Start(ctx)
	defer mon.Stop()

	// Reminder planner
	plan := planner.New(config.ServiceRegistry, store, deduper, emitter, cfg.Location(), logger)
	if err := plan.Start(ctx); err != nil {
		logger.Error("Failed to start reminder planner", "error", err)
		os.Exit(1)
	}
	defer plan.Stop()

	// Playback retry machine. The rendering surface observes reload
	// requests through the playback snapshot transitioning to loading.
	machine := playback.New(func() {
		logger.Info("playback reload requested")
	}, oc.WatchURL(""), logger)
	defer machine.Close()

	// Create router
	router := api.NewRouter(api.Deps{
		Store:   store,
		Pool:    pool,
		Monitor: mon,
		Planner: plan,
		Machine: machine,
		Oracle:  oc,
		Deduper: deduper,
		Emitter: emitter,
		Logger:  logger,
	}, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting streamwatch",
			"addr", addr,
			"environment", cfg.Environment,
			"channel", cfg.YouTubeChannelID,
			"poll_interval", cfg.PollInterval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
