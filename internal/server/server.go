// Package server wires the query builder's HTTP surface: router, middleware,
// and graceful lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/handler"
	"github.com/querydeck/querydeck/internal/server/middleware"
	"github.com/querydeck/querydeck/internal/session"
)

// Server is the querydeck HTTP server.
type Server struct {
	cfg        config.ServerConfig
	router     chi.Router
	sessions   *session.Manager
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg config.ServerConfig, src catalog.Source, exec executor.Executor, sessions *session.Manager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}

	qh := handler.NewQueryHandler(src, exec, sessions, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if cfg.RequestsPerMinute > 0 {
		r.Use(middleware.RateLimit(cfg.RequestsPerMinute))
	}

	r.Get("/healthz", handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects/{project}/schema", qh.GetSchema)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", qh.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", qh.GetSession)
				r.Delete("/", qh.DeleteSession)
				r.Post("/actions", qh.ApplyAction)
				r.Get("/sql", qh.PreviewSQL)
				r.Post("/run", qh.Run)
			})
		})
	})

	s.router = r
	return s
}

// Router exposes the chi router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the server and blocks until SIGINT or SIGTERM, then
// drains in-flight requests within the shutdown timeout. An hourly ticker
// evicts idle sessions while the server runs.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case now := <-sweep.C:
			if n := s.sessions.PurgeIdle(now); n > 0 {
				s.logger.Info("evicted idle sessions", "count", n)
			}
		case <-ctx.Done():
			s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
			defer cancel()
			return s.httpServer.Shutdown(shutdownCtx)
		}
	}
}
