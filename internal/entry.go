// Package internal provides the engine initialization and runtime wiring.
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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/docstore"
	"github.com/starford/ansuz/internal/pad"
	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// workspaceHandle is the name the default workspace root is registered
// under; tabs recorded with this handle resolve against the rooted
// workspace provider after a restart.
const workspaceHandle = "workspace"

// Run starts the engine with the given options and blocks until shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.Session.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	ws, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init workspace storage: %w", err)
	}

	store := docstore.New(ws, cfg.Workspace.BoardsDir, cfg.Workspace.NotesDir)
	store.RegisterHandle(workspaceHandle, ws)

	if _, err := store.EnsureNotesRoot(); err != nil {
		logger.Warn("notes root init failed", slog.String("error", err.Error()))
	}

	// Session database: restore tabs from the previous run, dropping any
	// whose board file has vanished since.
	sess, err := session.Open(cfg.Session.SQLitePath)
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}
	defer sess.Close()

	tabs, active := session.Restore(sess, ws, func(name string) bool {
		_, ok := store.Handle(name)
		return ok
	}, logger)
	store.SetTabs(tabs, active)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	store.OnReplace(broker.PublishBoardUpdated)

	notify := func(event string, data map[string]any) {
		broker.Publish(sse.Event{Type: event, Data: data})
	}

	pads := pad.NewManager(store, logger, notify, cfg.Workspace.Path,
		time.Duration(cfg.Pad.DebounceSeconds)*time.Second, cfg.Pad.MaxFileBytes)

	// Build API service and router.
	svc := api.NewService(store, pads, sess, notify)
	ah := api.NewAttachmentHandler(ws, cfg.Workspace.AttachmentsDir)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token,
		http.HandlerFunc(broker.ServeHTTP), ah)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the workspace for external edits. File events reach open pads
	// so they can flag externally-changed content; board removals and
	// updates fan out to connected shells.
	g.Go(func() error {
		err := docstore.Watch(gCtx, store, cfg.Workspace.Path, logger, func(kind, rel string) {
			switch kind {
			case "board.removed":
				broker.Publish(sse.Event{Type: kind, Data: map[string]string{"path": rel}})
			default:
				pads.NotifyExternal(kind, rel)
			}
		})
		if err != nil {
			logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
		}
		return nil
	})

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

		// Flush dirty pads before the process exits; unsaved buffers are
		// the one thing a crash cannot recover.
		pads.Shutdown()

		tabs, active := store.Tabs()
		if err := sess.SaveTabs(tabs, active); err != nil {
			logger.Error("session snapshot failed", slog.String("error", err.Error()))
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
