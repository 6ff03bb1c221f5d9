// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/flancian/agora-import/internal/api"
	"github.com/flancian/agora-import/internal/changes"
	"github.com/flancian/agora-import/internal/importer"
	"github.com/flancian/agora-import/internal/index"
	"github.com/flancian/agora-import/internal/mcpserver"
	"github.com/flancian/agora-import/internal/nodeservice"
	"github.com/flancian/agora-import/internal/sse"
	"github.com/flancian/agora-import/internal/vcs"
)

// components are the collaborators shared by every run mode.
type components struct {
	cfg    *Config
	logger *slog.Logger
	db     *index.DB
	imp    *importer.Importer
	svc    *nodeservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// setup opens the index and wires the importer. Extra importer options are
// appended after the configured ones.
func setup(app *application, logger *slog.Logger, extra ...importer.Option) (*components, error) {
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("sources", len(cfg.Sources)),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("chunk_size", cfg.Import.ChunkSize),
		slog.Int("workers", cfg.Import.Workers),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	detector := changes.NewDetector(vcs.NewGit(cfg.Import.VCSTimeout), logger)
	opts := append([]importer.Option{
		importer.WithChunkSize(cfg.Import.ChunkSize),
		importer.WithWorkers(cfg.Import.Workers),
	}, extra...)
	imp := importer.New(db, detector, cfg.Roots(), logger, opts...)

	return &components{
		cfg:    cfg,
		logger: logger,
		db:     db,
		imp:    imp,
		svc:    nodeservice.NewService(db),
	}, nil
}

// RunImport imports every configured garden once and returns.
func RunImport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	if logger == nil {
		logger = newLogger(os.Stdout, app.config.App.LogLevel)
	}

	c, err := setup(app, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	if _, err := c.imp.ImportAll(ctx); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// never interleave with the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	if logger == nil {
		logger = newLogger(os.Stderr, app.config.App.LogLevel)
	}

	c, err := setup(app, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.svc, c.imp, app.version).ServeStdio()
}

// Run starts the server: an initial import, the optional garden watcher,
// and the HTTP API.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = newLogger(os.Stdout, cfg.App.LogLevel)
		slog.SetDefault(logger)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := setup(app, logger, importer.WithEventFunc(func(r importer.Report) {
		broker.PublishGardenImported(sse.GardenImported{
			User:     r.User,
			Mode:     string(r.Mode),
			Revision: r.Revision,
			Imported: r.Imported,
			Failed:   r.Failed,
		})
	}))
	if err != nil {
		return err
	}
	defer c.db.Close()

	// Run initial import.
	if _, err := c.imp.ImportAll(ctx); err != nil {
		logger.Warn("initial import failed", slog.String("error", err.Error()))
	}

	// Build API router.
	apiRouter := api.NewRouter(c.svc, c.imp, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", readyHandler(c.db))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start garden watcher.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			if err := c.imp.Watch(gCtx, c.imp.Items(), cfg.Watch.Debounce); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")

// readyHandler reports ready once the index answers queries.
func readyHandler(db *index.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := db.CountSubnodes(r.Context(), ""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
