// Package server implements the relay HTTP API server.
package server

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dwsmith1983/actorrelay/internal/orchestrator"
	"github.com/dwsmith1983/actorrelay/internal/relay"
)

// DefaultMaxBody limits request bodies when no limit is configured.
const DefaultMaxBody int64 = 1 << 20

const (
	minWriteTimeout = 15 * time.Minute
	// writeSlack covers the platform calls of one run on top of its waits.
	writeSlack = 5 * time.Minute
)

// Server is the relay HTTP API server.
type Server struct {
	relay     *relay.Service
	router    chi.Router
	addr      string
	maxBody   int64
	staticDir string
	logger    *slog.Logger
	srv       *http.Server
}

// New creates a new HTTP server. A staticDir, if set, is served at the root
// so the browser front end and the API share an origin.
func New(addr string, svc *relay.Service, maxBody int64, staticDir string, logger *slog.Logger) *Server {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		relay:     svc,
		addr:      addr,
		maxBody:   maxBody,
		staticDir: staticDir,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(logger))
	r.Use(middleware.Recoverer)

	s.router = r
	s.registerRoutes(r)
	r.Handle("/debug/vars", expvar.Handler())
	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	// Runs block until the actor finishes, so writes may take a while.
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(svc.RunConfig()),
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests. It returns http.ErrServerClosed after
// Stop.
func (s *Server) Start() error {
	s.logger.Info("relay server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// writeTimeout outlasts the longest run the relay will wait for.
func writeTimeout(cfg orchestrator.Config) time.Duration {
	cfg, err := cfg.Normalize()
	if err != nil {
		return minWriteTimeout
	}
	if d := cfg.MaxWait() + writeSlack; d > minWriteTimeout {
		return d
	}
	return minWriteTimeout
}
