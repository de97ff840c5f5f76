// Dashboard Genie - conversational dashboard builder for Apache Superset.
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

	"github.com/ashureev/dashgenie/internal/api"
	"github.com/ashureev/dashgenie/internal/builder"
	"github.com/ashureev/dashgenie/internal/catalog"
	"github.com/ashureev/dashgenie/internal/config"
	"github.com/ashureev/dashgenie/internal/conversation"
	"github.com/ashureev/dashgenie/internal/health"
	"github.com/ashureev/dashgenie/internal/llm"
	"github.com/ashureev/dashgenie/internal/middleware"
	"github.com/ashureev/dashgenie/internal/rbac"
	"github.com/ashureev/dashgenie/internal/session"
	"github.com/ashureev/dashgenie/internal/store"
	"github.com/ashureev/dashgenie/internal/superset"
	"github.com/ashureev/dashgenie/web"
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

	slog.Info("Starting server", "port", cfg.Port, "superset_url", cfg.Superset.URL, "model", cfg.LLM.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	links, err := store.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := links.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()
	slog.Info("Database connected")

	platform, err := superset.New(superset.Config{
		BaseURL:  cfg.Superset.URL,
		Username: cfg.Superset.Username,
		Password: cfg.Superset.Password,
		Timeout:  cfg.Superset.Timeout,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize Superset client", "error", err)
		os.Exit(1)
	}

	if !cfg.LLMEnabled() {
		slog.Warn("LITELLM_URL not set, every message will fail until a model endpoint is configured")
	}
	model := llm.NewOpenAIClient(llm.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		SkipTLSVerify: cfg.LLM.SkipTLSVerify,
		Timeout:       cfg.LLM.Timeout,
	})
	driverOpts := []conversation.Option{conversation.WithPromptTokenLimit(cfg.LLM.PromptTokenLimit)}
	if cfg.LLM.PromptTokenLimit > 0 {
		driverOpts = append(driverOpts, conversation.WithTokenCounter(conversation.NewTokenCounter(cfg.LLM.Model, logger)))
	}
	driver := conversation.NewDriver(model, logger, driverOpts...)

	// Catalog: initial load with retries, then periodic refresh.
	cache := catalog.NewCache()
	refresher := catalog.NewRefresher(cache, platform, logger)
	go func() {
		policy := catalog.RetryPolicy{
			MaxAttempts: cfg.Catalog.StartupAttempts,
			Delay:       cfg.Catalog.StartupDelay,
			Multiplier:  1,
		}
		if err := refresher.Startup(ctx, policy); err != nil {
			slog.Error("Catalog startup load gave up, continuing with periodic refresh", "error", err)
		}
	}()
	refresher.Start(ctx, cfg.Catalog.RefreshInterval)

	// Initialize services.
	sessions := session.NewManager(
		session.NewMemoryStore(cfg.Session.IdleTimeout),
		driver,
		rbac.NewVerifier(platform, cache, logger),
		builder.New(platform, links, cfg.Superset.ExternalURL, logger),
		cache,
		session.Config{
			ProposalMaxTokens:  cfg.LLM.ProposalMaxTokens,
			PlanMaxTokens:      cfg.LLM.PlanMaxTokens,
			UnverifiedFallback: cfg.UnverifiedFallback,
		},
		logger,
	)
	sessions.StartSweeper(ctx, cfg.Session.SweepInterval)

	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Close()

	// Optional gRPC readiness endpoint.
	var grpcHealth *health.Server
	if cfg.GRPCHealthAddr != "" {
		grpcHealth = health.New(logger)
		grpcHealth.Track(cache)
		go func() {
			if err := grpcHealth.ListenAndServe(cfg.GRPCHealthAddr); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Initialize handlers.
	chatHandler := api.NewHandler(sessions, limiter, logger, api.WithAllowedOrigins(cfg.AllowedOrigins))
	healthHandler := api.NewHealthHandler(cache, links)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// Serve the embedded chat widget.
	widget := web.Handler()
	r.Get("/chat", widget.ServeHTTP)
	r.Handle("/*", widget)

	// Create server.
	// Note: the chat socket is long-lived and model calls are slow, so there
	// is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

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

	if grpcHealth != nil {
		grpcHealth.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
