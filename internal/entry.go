// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/blog"
	"github.com/starford/raido/internal/chat"
	"github.com/starford/raido/internal/kv"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/recordservice"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/weather"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// draftsPrefix is the namespace for blog drafts, disjoint from the
// records namespace configured in StoreConfig.Prefix.
const draftsPrefix = "drafts/"

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("store_prefix", cfg.Store.Prefix),
		slog.String("default_backend", cfg.Store.DefaultBackend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Durable and session backends.
	durable, err := kv.OpenSQLite(cfg.Store.Path,
		kv.WithMaxEntries(cfg.Store.MaxEntries),
		kv.WithMaxValueBytes(cfg.Store.MaxValueBytes))
	if err != nil {
		return fmt.Errorf("init durable backend: %w", err)
	}
	defer durable.Close()
	session := kv.NewMemory()

	// Backend preference, restored from the durable backend.
	prefs, err := settings.New(durable, cfg.Store.DefaultBackend)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Record stores and the service routing between them.
	durableStore := record.NewStore(durable, cfg.Store.Prefix)
	sessionStore := durableStore.WithBackend(session)
	svc := recordservice.NewService(durableStore, sessionStore, prefs, broker)

	// Mini-app collaborators.
	weatherClient := weather.NewClient(cfg.Weather.BaseURL,
		time.Duration(cfg.Weather.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Weather.CacheTTLSeconds)*time.Second)
	blogService := blog.NewService(cfg.Blog.BaseURL,
		time.Duration(cfg.Blog.TimeoutSeconds)*time.Second,
		record.NewStore(durable, draftsPrefix), logger)

	apiRouter := api.NewRouter(svc, weatherClient, blogService,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api and the chat endpoint under /chat.
	r.Mount("/api", apiRouter)
	r.Mount("/chat", http.StripPrefix("/chat", chat.NewHandler(logger)))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file and re-apply the default backend on change.
	if app.configPath != "" {
		configPath := app.configPath
		g.Go(func() error {
			load := func() (string, error) {
				fresh := NewDefaultConfig()
				if err := pkgconfig.Load(configPath, fresh); err != nil {
					return "", err
				}
				return fresh.Store.DefaultBackend, nil
			}
			if err := settings.Watch(gCtx, prefs, configPath, load, logger, broker.PublishSettingsEvent); err != nil {
				logger.Warn("settings watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
