package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/ferrows/mnemo/internal/api"
	"github.com/ferrows/mnemo/internal/embed"
	"github.com/ferrows/mnemo/internal/keyword"
	"github.com/ferrows/mnemo/internal/mcpserver"
	"github.com/ferrows/mnemo/internal/relevance"
	"github.com/ferrows/mnemo/internal/scope"
	"github.com/ferrows/mnemo/internal/sse"
	"github.com/ferrows/mnemo/internal/store"
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

	// In MCP mode stdout is the transport, so logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	// Resolve the active scope directory.
	globalRoot := cfg.Scope.GlobalRoot
	if globalRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		globalRoot = filepath.Join(home, scope.StorageSubdir)
	}
	sctx := scope.Context{
		Dir:               cfg.Scope.Dir,
		GlobalRoot:        globalRoot,
		EnterpriseEnabled: cfg.Scope.Enterprise.Enabled,
		EnterprisePath:    cfg.Scope.Enterprise.Path,
	}
	tier := scope.DefaultTier(sctx, cfg.Scope.Tier)
	dir, err := scope.Resolve(sctx, tier)
	if err != nil {
		return fmt.Errorf("resolve scope: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("scope_tier", string(tier)),
		slog.String("scope_dir", dir),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the record store.
	st, err := store.Open(dir, tier, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	// Reconcile the index with whatever is on disk.
	if _, err := st.RebuildIndex(false); err != nil {
		logger.Warn("initial index rebuild failed", slog.String("error", err.Error()))
	}

	// Optional semantic layer.
	var (
		searcher *embed.Searcher
		engine   *relevance.Engine
	)
	if cfg.Embedding.Enabled() {
		provider, err := embed.NewOpenAIProvider(embed.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return fmt.Errorf("init embedding provider: %w", err)
		}
		cache, err := embed.OpenCache(st.FS())
		if err != nil {
			return fmt.Errorf("open embedding cache: %w", err)
		}
		searcher = embed.NewSearcher(provider, cache, st, logger)
		engine = relevance.NewEngine(cfg.Relevance.Build(), searcher, logger)
	}

	// Optional keyword mirror.
	var kw *keyword.DB
	if cfg.Keyword.Path != "" {
		kw, err = keyword.Open(cfg.Keyword.Path)
		if err != nil {
			return fmt.Errorf("open keyword mirror: %w", err)
		}
		defer kw.Close()
	}

	svc := api.NewService(st, searcher, engine, kw, logger)
	svc.SyncKeyword()

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the scope directory for out-of-band edits. The resync must
	// re-derive the index, not just the keyword mirror: the mirror is fed
	// from the index, so a file edited behind the engine's back is invisible
	// until the index itself is rebuilt.
	g.Go(func() error {
		err := store.Watch(gCtx, st, logger,
			func() {
				if _, err := svc.Rebuild(false); err != nil {
					logger.Warn("watcher rebuild failed", slog.String("error", err.Error()))
				}
			},
			func(kind, id string) { broker.PublishRecordEvent(kind, id) })
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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
