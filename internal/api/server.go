// Package api is the HTTP transport for batch fraud analysis.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/engine"
	"github.com/technoKC/fraud-shield/internal/monitor"
	"github.com/technoKC/fraud-shield/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, eng *engine.Engine, screening *rules.ScreeningEngine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, overrides domain.OverrideStore, m *monitor.Monitor, version string) *Server {
	handler := NewHandler(eng, screening, repo, cache, bus, overrides, m, version, cfg.MaxUploadBytes)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression
	router.Use(RateLimitMiddleware(cache, cfg.RateLimitPerMinute))

	// Health endpoints (no auth)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/", func(r chi.Router) {
		r.Use(CapabilityMiddleware(cfg.APIKeys))

		// Batch analysis
		r.Post("/detect", handler.Detect)
		r.Get("/reports/{id}", handler.GetReport)

		// Manual overrides
		r.Group(func(r chi.Router) {
			r.Use(RequireCapability(CapabilityOverride))
			r.Put("/transactions/{id}/status", handler.UpdateStatus)
			r.Get("/overrides", handler.ListOverrides)
		})

		// Screening rule management
		r.Group(func(r chi.Router) {
			r.Use(RequireCapability(CapabilityRules))
			r.Get("/rules", handler.ListRules)
			r.Get("/rules/{id}", handler.GetRule)
			r.Post("/rules", handler.CreateRule)
			r.Delete("/rules/{id}", handler.DeleteRule)
			r.Post("/rules/reload", handler.ReloadRules)
		})

		// Security monitoring
		r.Group(func(r chi.Router) {
			r.Use(RequireCapability(CapabilityAdmin))
			r.Get("/security/dashboard", handler.SecurityDashboard)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
