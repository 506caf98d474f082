// Package web provides the HTTP API and preview pages for easydata.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/web/middleware"
)

// Options configures the HTTP layer.
type Options struct {
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RequestTimeout     time.Duration
	MaxUploadBytes     int64
	ParquetCompression string
	TrustedProxies     []string
	APIKeys            []string
}

// DefaultMaxUploadBytes is used when Options.MaxUploadBytes is not positive.
const DefaultMaxUploadBytes = 50 << 20

// Server is the HTTP server for easydata.
type Server struct {
	service *core.Service
	opts    Options
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with its middleware and routes configured.
func NewServer(service *core.Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		service: service,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.RequestInfo)
	if s.opts.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.opts.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages show dataset contents, so they sit behind the same keys as the API.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.opts.APIKeys))
		r.Get("/", s.handleIndex)
		r.Get("/datasets/{id}", s.handleDatasetPage)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.opts.APIKeys))

		r.Post("/infer", s.handleInfer)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", s.handleListDatasets)
			r.Post("/", s.handleCreateDataset)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDataset)
				r.Delete("/", s.handleDeleteDataset)
				r.Post("/operations", s.handleApply)
				r.Delete("/columns/{name}", s.handleDeleteColumn)
				r.Patch("/columns/{name}", s.handleUpdateColumn)
				r.Post("/reset", s.handleReset)
				r.Get("/history", s.handleHistory)
				r.Post("/persist", s.handlePersist)
				r.Get("/export", s.handleExport)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
