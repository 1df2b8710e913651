// Package api exposes the journal over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/journal"
	"github.com/pbaille/autojournal/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the HTTP surface.
type Options struct {
	Production     bool
	AllowedOrigins []string
	MaxBodyBytes   int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server handles HTTP requests for the journal API
type Server struct {
	journal  *journal.Service
	auth     *auth.Service
	metrics  *metrics.Collector
	health   Pinger
	logger   *zap.Logger
	opts     Options
	validate *validator.Validate
	router   chi.Router
}

// New creates a new API server
func New(j *journal.Service, a *auth.Service, m *metrics.Collector, health Pinger, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 50 << 20
	}
	s := &Server{
		journal:  j,
		auth:     a,
		metrics:  m,
		health:   health,
		logger:   logger,
		opts:     opts,
		validate: newValidator(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.observe)
	}

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.Header},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitBody)

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Identify(s.writeError))

			r.Post("/log", s.handleLog)
			r.Get("/log/stats", s.handleStats)

			r.Post("/summarize", s.handleSummarize)
			r.Post("/summarize/highlight", s.handleSummarizeHighlight)

			r.Get("/journal", s.handleListJournal)
			r.Get("/journal/search", s.handleSearchJournal)
			r.Post("/journal/highlight", s.handleAddHighlight)
			r.Get("/journal/*", s.handleGetEntry)
			r.Delete("/journal/*", s.handleDeleteEntry)

			r.Get("/tags", s.handleListTags)
			r.Get("/tags/categories", s.handleCategories)
			r.Patch("/tags/*", s.handleUpdateTags)

			r.With(auth.RequireAuth(s.writeError)).Get("/auth/user", s.handleMe)
			r.With(auth.RequireAuth(s.writeError)).Put("/auth/settings", s.handleUpdateSettings)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found", "code": "NOT_FOUND"})
	})

	s.router = r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
