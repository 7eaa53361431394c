package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/gauntlet/internal/api"
	"github.com/dom/gauntlet/internal/cache"
	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/config"
	"github.com/dom/gauntlet/internal/repository/postgres"
	"github.com/dom/gauntlet/internal/service"
	"github.com/dom/gauntlet/internal/websocket"
	"gorm.io/gorm/logger"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	gormLevel := logger.Warn
	if cfg.Environment == "development" {
		gormLevel = logger.Info
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, gormLevel)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Change feed transport
	var bus changefeed.Bus
	if cfg.NATSURL != "" {
		natsBus, err := changefeed.ConnectNATS(cfg.NATSURL, cfg.ChangefeedSubject, log)
		if err != nil {
			log.Error("failed to connect to nats", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		bus = natsBus
		log.Info("change feed on nats", "url", cfg.NATSURL, "subject", cfg.ChangefeedSubject)
	} else {
		bus = changefeed.NewLocalBus()
		log.Info("change feed in process")
	}
	if err := changefeed.RegisterCallbacks(db, bus, log); err != nil {
		log.Error("failed to register change feed", "error", err)
		os.Exit(1)
	}

	// Standings cache
	standings := cache.NewStandingsCache(cfg.RedisAddr, cfg.StandingsTTL)
	if standings.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := standings.Ping(ctx); err != nil {
			log.Warn("standings cache unreachable", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}

	// Initialize repositories and services
	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, standings, cfg, log)

	// Initialize WebSocket hub
	hub := websocket.NewHub(services.Tourney, log)
	go hub.Run()

	var unsubscribe []func()
	for _, handler := range []func(changefeed.Event){hub.HandleEvent, services.Score.HandleChange} {
		cancel, err := bus.Subscribe(handler)
		if err != nil {
			log.Error("failed to subscribe to change feed", "error", err)
			os.Exit(1)
		}
		unsubscribe = append(unsubscribe, cancel)
	}

	// Initialize router
	router := api.NewRouter(services, hub, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	for _, cancel := range unsubscribe {
		cancel()
	}
	hub.Stop()
	if err := bus.Close(); err != nil {
		log.Warn("closing change feed", "error", err)
	}
	if err := standings.Close(); err != nil {
		log.Warn("closing standings cache", "error", err)
	}

	log.Info("server stopped")
}
