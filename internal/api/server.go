// Package api wires the HTTP surface: routing, middleware and handlers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utilitysplitter/backend/internal/api/handlers"
	"github.com/utilitysplitter/backend/internal/api/middleware"
	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config         Config
	router         chi.Router
	httpServer     *http.Server
	logger         *slog.Logger
	repo           storage.Repository
	billingService *service.BillingService
	syncService    *service.SyncService
	metrics        *middleware.Metrics
}

// NewServer creates a new API server.
// If syncService is nil, sync endpoints will not be available.
func NewServer(cfg Config, repo storage.Repository, billingService *service.BillingService, syncService *service.SyncService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:         cfg,
		router:         chi.NewRouter(),
		logger:         logger,
		repo:           repo,
		billingService: billingService,
		syncService:    syncService,
		metrics:        middleware.NewMetrics(nil),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(s.metrics.Middleware())
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Handle("/metrics", s.metrics.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Roster
		unitsHandler := handlers.NewUnitsHandler(s.repo)
		r.Get("/units", unitsHandler.List)
		r.Get("/units/{id}", unitsHandler.Get)
		r.Put("/units/{id}", unitsHandler.Save)
		r.Delete("/units/{id}", unitsHandler.Delete)

		// Bills and everything entered against them
		billsHandler := handlers.NewBillsHandler(s.repo, s.billingService)
		r.Get("/bills", billsHandler.List)
		r.Get("/bills/{id}", billsHandler.Get)
		r.Put("/bills/{id}/readings", billsHandler.SaveReadings)
		r.Post("/bills/{id}/adjustments", billsHandler.CreateAdjustment)
		r.Put("/adjustments/{id}/units", billsHandler.AssignAdjustment)

		// Container assignments
		solidWasteHandler := handlers.NewSolidWasteHandler(s.billingService)
		r.Post("/bills/{id}/solid-waste/auto-assign", solidWasteHandler.AutoAssign)
		r.Post("/bills/{id}/solid-waste/toggle", solidWasteHandler.Toggle)

		// Invoice calculation and approval
		invoicesHandler := handlers.NewInvoicesHandler(s.repo, s.billingService)
		r.Post("/bills/{id}/preview", invoicesHandler.Preview)
		r.Post("/bills/{id}/submit", invoicesHandler.Submit)
		r.Post("/bills/{id}/approve", invoicesHandler.Approve)
		r.Get("/bills/{id}/invoices", invoicesHandler.List)

		// Sync operations (live sync jobs)
		if s.syncService != nil {
			syncHandler := handlers.NewSyncHandler(s.syncService)
			r.Post("/sync", syncHandler.StartSync)
			r.Get("/sync", syncHandler.ListAllSyncs)
			r.Get("/sync/active", syncHandler.ListActiveSyncs)
			r.Get("/sync/{jobId}", syncHandler.GetSyncStatus)
			r.Delete("/sync/{jobId}", syncHandler.CancelSync)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
