// Trellis - Gamified Learning Progress Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/trellislearn/trellis-server/internal/api"
	"github.com/trellislearn/trellis-server/internal/calendar"
	"github.com/trellislearn/trellis-server/internal/config"
	"github.com/trellislearn/trellis-server/internal/engine"
	"github.com/trellislearn/trellis-server/internal/events"
	"github.com/trellislearn/trellis-server/internal/identity"
	"github.com/trellislearn/trellis-server/internal/maintenance"
	"github.com/trellislearn/trellis-server/internal/middleware"
	"github.com/trellislearn/trellis-server/internal/store"
	"github.com/trellislearn/trellis-server/internal/titles"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	mapper := titles.DefaultMapper()
	eng := engine.New(repo, calendar.SystemClock{}, mapper)

	hub := events.NewHub()
	eng.SetPublisher(hub)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, eng)
	progressHandler := api.NewProgressHandler(baseHandler, cfg.LeaderboardLimit)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := events.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	// Heartbeat answers load balancer probes before identity runs, so
	// cookie-less health checks never mint anonymous users.
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.OnboardingCourse, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	progressHandler.RegisterRoutes(r)

	// WebSocket endpoint for progress events.
	r.Get("/ws/progress", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout; event sockets stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start maintenance jobs.
	sched := maintenance.New(repo, hub, cfg.MaintenanceInterval)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start maintenance scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()
	slog.Info("Maintenance scheduler started", "interval", cfg.MaintenanceInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	hub.Shutdown()

	slog.Info("Server stopped successfully")
}
