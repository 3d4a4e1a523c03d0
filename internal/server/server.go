// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Version is reported in the OpenAPI document.
var Version = "0.1.0"

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    RateLimitConfig
}

// Engine is the part of the dialogue engine the HTTP shell calls.
type Engine interface {
	Handle(ctx context.Context, sessionID, message string) (*agent.Response, error)
	ClearSession(ctx context.Context, sessionID string)
	History(ctx context.Context, sessionID string) []agent.HistoryEntry
	Stats() agent.Stats
}

// HealthSource reports per-provider health. *provider.Registry implements it.
type HealthSource interface {
	Health() map[string]provider.HealthMetrics
}

// Deps are the collaborators served over HTTP. A nil Engine keeps the
// server up in degraded mode so /health can report it.
type Deps struct {
	Engine  Engine
	Metrics *metrics.Metrics
	Health  HealthSource
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	deps   Deps

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Server with chi router, huma API, CORS and the Solrock routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, solerr.New(solerr.CodeServerConfigInvalid, "listen address is required")
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// A turn may sleep through the whole retry schedule.
		cfg.WriteTimeout = 3 * time.Minute
	}

	srv := &Server{
		cfg:  cfg,
		deps: deps,
		done: make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware(cfg.RateLimit, srv.done))

	humaConfig := huma.DefaultConfig("Solrock", Version)
	humaConfig.Info.Description = "Conversational code assistant API"
	api := humachi.New(r, humaConfig)

	r.Handle("/metrics", deps.Metrics.Handler())

	srv.router = r
	srv.api = api
	srv.registerRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, used to dump the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background goroutines. It is idempotent.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return solerr.Wrapf(err, solerr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return solerr.Wrap(err, solerr.CodeServerStartFailure, "serving http")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return solerr.Wrap(err, solerr.CodeServerShutdownFailure, "shutting down")
	}
	slog.Info("http server stopped")

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
