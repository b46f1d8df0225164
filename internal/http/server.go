// Package http serves the ledger over the collaborator's REST contract for
// local development and end-to-end tests.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	applog "expresso/internal/log"
	"expresso/internal/remote"
)

type Options struct {
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
	// RateLimit caps mutating requests per client IP and minute. Zero
	// disables the limiter.
	RateLimit int
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	collab      remote.Collaborator
	logger      *applog.Logger
	rateLimiter *rateLimiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, collab remote.Collaborator, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	s := &Server{
		Server:  http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second},
		collab:  collab,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		started: time.Now(),
	}
	if opts.RateLimit > 0 {
		s.rateLimiter = newRateLimiter(opts.RateLimit)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", applog.HeaderRequestID},
		ExposedHeaders:   []string{applog.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware)
	r.Use(applog.AccessLog)
	r.Use(securityHeaders)
	if s.rateLimiter != nil {
		r.Use(s.withRateLimit)
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/contas", s.handleListAccounts)
		r.Post("/contas", s.handleCreateAccount)

		r.Get("/categorias", s.handleListCategories)
		r.Post("/categorias", s.handleCreateCategory)
		r.Put("/categorias/{id}", s.handleUpdateCategory)
		r.Delete("/categorias/{id}", s.handleDeleteCategory)

		r.Get("/transacoes", s.handleListTransactions)
		r.Post("/transacoes", s.handleCreateTransaction)
		r.Delete("/transacoes/{id}", s.handleDeleteTransaction)

		r.Get("/metas", s.handleListGoals)
		r.Post("/metas", s.handleCreateGoal)

		r.Post("/transferencias", s.handleCreateTransfer)

		r.Put("/clientes/{id}", s.handleUpdateProfile)
		r.Delete("/clientes/{id}", s.handleDeleteProfile)
	})
	s.Handler = r
	return s
}

// Shutdown stops background work and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the limiter to mutating requests only.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !s.rateLimiter.allow(ip) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeText(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}
