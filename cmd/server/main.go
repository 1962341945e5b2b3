// StudyLock - study focus dashboard server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/api"
	"github.com/studylock/studylock/internal/config"
	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/events"
	"github.com/studylock/studylock/internal/grpchealth"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/identity"
	"github.com/studylock/studylock/internal/middleware"
	"github.com/studylock/studylock/internal/session"
	"github.com/studylock/studylock/internal/store"
	"github.com/studylock/studylock/internal/telemetry"
	"github.com/studylock/studylock/web"
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

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	metrics, err := telemetry.New(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Insecure: cfg.Telemetry.Insecure,
	})
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := metrics.Close(flushCtx); closeErr != nil {
			slog.Error("Failed to flush metrics", "error", closeErr)
		}
	}()

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	generator, aiEnabled := agent.NewDefaultGenerator(ctx, agent.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, logger)

	// Initialize services.
	catalog := i18n.Default()
	sessions := session.NewManager(session.Deps{
		Generator: generator,
		Catalog:   catalog,
		Recorder: agent.Recorders{
			agent.NewLedgerRecorder(repo, logger),
			conversationLogger,
			metrics,
		},
		OnToggle: func(key session.Key, app domain.MonitoredApp) {
			metrics.RecordToggle(context.Background(), app)
			slog.Info("App toggled", "user_id", key.UserID, "session_id", key.SessionID, "app_id", app.ID, "blocked", app.Blocked)
		},
		Logger: logger,
	}, session.WithLifecycle(
		func(session.Key) { metrics.SessionOpened(context.Background()) },
		func(session.Key) { metrics.SessionClosed(context.Background()) },
	))

	hub := events.NewHub(sessions, cfg.FrontendURL, cfg.IsDevelopment())
	sessions.SetPublisher(hub)

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions)
	healthHandler := api.NewHealthHandler(baseHandler)
	dashboardHandler := api.NewDashboardHandler(baseHandler, catalog, aiEnabled)
	assistantHandler := api.NewAssistantHandler(baseHandler, limiter)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg), identity.SessionHeaderName))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterRoutes(r)
	dashboardHandler.RegisterRoutes(r)
	assistantHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", hub.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0 so /ws/events and ?wait=1 requests are not cut off.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	session.StartTTLWorker(ctx, sessions, repo, session.TTLConfig{
		Interval:  cfg.SweepInterval,
		TTL:       cfg.SessionTTL,
		Retention: cfg.ExchangeRetention,
	}, hub.CloseSession)

	healthServer := grpchealth.New(aiEnabled)
	go func() {
		if err := healthServer.ListenAndServe(ctx, ":"+cfg.GRPCPort); err != nil {
			slog.Error("gRPC health server failed", "error", err)
		}
	}()

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

	slog.Info("Server stopped successfully")
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
