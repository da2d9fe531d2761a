// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"crypto/rand"
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

	"github.com/starford/mindmaps/internal/admin"
	"github.com/starford/mindmaps/internal/api"
	"github.com/starford/mindmaps/internal/authservice"
	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/mcpserver"
	"github.com/starford/mindmaps/internal/password"
	"github.com/starford/mindmaps/internal/sse"
	"github.com/starford/mindmaps/internal/store"
	"github.com/starford/mindmaps/internal/token"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger and installs it as the default.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// signingKey returns the configured secret, or a random one when unset.
func signingKey(cfg AuthConfig, logger *slog.Logger) ([]byte, error) {
	if cfg.SecretKey != "" {
		return []byte(cfg.SecretKey), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	logger.Warn("auth.secret_key is not set; using a random key, tokens will not survive a restart")
	return key, nil
}

type services struct {
	db     *store.DB
	auth   *authservice.Service
	maps   *mapservice.Service
	events *sse.Broker
}

func (s *services) Close() error {
	if s.events != nil {
		s.events.Close()
	}
	return s.db.Close()
}

// buildServices opens the database and wires the services. A non-nil events
// broker receives map changes.
func buildServices(ctx context.Context, cfg *Config, logger *slog.Logger, events *sse.Broker) (*services, error) {
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	key, err := signingKey(cfg.Auth, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	auth := authservice.NewService(
		db.Users(),
		password.New(cfg.Auth.BcryptCost),
		token.NewIssuer(key),
		authservice.Config{
			AccessTokenTTL:    cfg.Auth.AccessTokenTTL,
			MinPasswordLength: cfg.Auth.MinPasswordLength,
		},
		logger,
	)
	mapOpts := []mapservice.Option{mapservice.WithLogger(logger)}
	if events != nil {
		mapOpts = append(mapOpts, mapservice.WithNotifier(events))
	}
	maps := mapservice.NewService(
		db.Maps(),
		mapservice.Config{
			MaxDescriptionLength: cfg.Mindmap.MaxDescriptionLength,
			CopyPrefix:           cfg.Mindmap.CopyPrefix,
		},
		mapOpts...,
	)
	return &services{db: db, auth: auth, maps: maps, events: events}, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newHandler assembles the HTTP surface: health probes, /auth and /api.
func newHandler(db pinger, svc *services) http.Handler {
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/auth", api.NewAuthRouter(svc.auth))
	r.Mount("/api", api.NewRouter(svc.maps, svc.auth, svc.events))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Duration("access_token_ttl", cfg.Auth.AccessTokenTTL),
		slog.Int("max_description_length", cfg.Mindmap.MaxDescriptionLength),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := buildServices(ctx, cfg, logger, sse.NewBroker())
	if err != nil {
		return err
	}
	defer svc.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(svc.db, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

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

		// Event streams never finish on their own.
		svc.events.Close()

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

// RunMCP serves the MCP tools on stdio acting as the user with email.
// Logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, email string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	svc, err := buildServices(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	owner, err := svc.db.Users().FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("mcp: user %q: %w", email, err)
	}

	logger.Info("Starting MCP server", slog.String("email", owner.Email))
	return mcpserver.New(svc.maps, owner).ServeStdio()
}

// OpenAdmin opens the database for the admin commands. The returned function
// closes it.
func OpenAdmin(ctx context.Context, out io.Writer, opts ...Option) (*admin.Manager, func() error, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg := app.config
	newLogger(os.Stderr, cfg.App.LogLevel)

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	mgr := admin.New(db, password.New(cfg.Auth.BcryptCost), password.Policy{MinLength: cfg.Auth.MinPasswordLength}, out)
	return mgr, db.Close, nil
}
