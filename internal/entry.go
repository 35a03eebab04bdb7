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

	"github.com/starford/notebot/internal/api"
	"github.com/starford/notebot/internal/chat"
	"github.com/starford/notebot/internal/mcpserver"
	"github.com/starford/notebot/internal/models"
	"github.com/starford/notebot/internal/notebook"
	"github.com/starford/notebot/internal/sse"
	"github.com/starford/notebot/internal/storage"
)

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
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, fsStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// State controller with render events bridged to SSE.
	nb, err := notebook.New(store,
		notebook.WithLogger(logger),
		notebook.WithNotify(func(ev notebook.Event) {
			broker.Publish(sse.Event{Type: ev.Kind, Data: ev})
		}),
	)
	if err != nil {
		return fmt.Errorf("init notebook: %w", err)
	}

	upstream := chat.NewClient(chat.ClientOptions{
		Endpoint:     cfg.Chat.Endpoint,
		APIKey:       cfg.Chat.APIKey,
		Model:        cfg.Chat.Model,
		Temperature:  cfg.Chat.Temperature,
		HistoryLimit: cfg.Chat.HistoryLimit,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Timeout:      time.Duration(cfg.Chat.TimeoutSec) * time.Second,
	})
	nb.SetResponder(models.AIModeSimulated, chat.NewSimulated(400*time.Millisecond, 900*time.Millisecond))
	nb.SetResponder(models.AIModeServerless, upstream)

	apiRouter := api.NewRouter(nb, upstream, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the file store for out-of-process edits. The notebook
	// reloads and clients get a full-refresh event.
	if fsStore != nil {
		g.Go(func() error {
			return storage.Watch(gCtx, fsStore, logger, func(key string) {
				if err := nb.Reload(); err != nil {
					logger.Warn("reload after external change failed",
						slog.String("key", key), slog.String("error", err.Error()))
					return
				}
				broker.Publish(sse.Event{Type: "state.changed", Data: map[string]string{"key": key}})
			})
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

// RunMCP starts the MCP server on stdin/stdout over the configured
// store. Logs go to stderr; stdout belongs to the protocol.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	nb, err := notebook.New(store, notebook.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init notebook: %w", err)
	}
	return mcpserver.New(nb).ServeStdio()
}

// openStore builds the configured storage backend. The second return is
// non-nil only for the file backend, which supports watching.
func openStore(cfg *Config) (storage.Provider, *storage.FS, error) {
	switch cfg.Store.Backend {
	case storage.BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		return db, nil, nil
	default:
		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		return fs, fs, nil
	}
}
