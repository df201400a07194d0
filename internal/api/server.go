package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eshaffer321/buybox-analyzer/internal/api/handlers"
	"github.com/eshaffer321/buybox-analyzer/internal/api/middleware"
	"github.com/eshaffer321/buybox-analyzer/internal/application/service"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
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
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
	}
}

// Dependencies are the optional collaborators behind the routes.
// A nil field disables the routes that need it.
type Dependencies struct {
	Repo            storage.Repository
	AnalysisService *service.AnalysisService
	Tester          handlers.ConnectionTester
	// Configured reports whether SP-API credentials are set, for /health
	Configured func() bool
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	deps       Dependencies
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.Recoverer)

	corsConfig := middleware.DefaultCORSConfig()
	if len(s.config.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = s.config.AllowedOrigins
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.deps.Configured)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Run history
		if s.deps.Repo != nil {
			runsHandler := handlers.NewRunsHandler(s.deps.Repo)
			r.Get("/runs", runsHandler.List)
			r.Get("/runs/{id}", runsHandler.Get)
			r.Get("/runs/{id}/items", runsHandler.Items)
			r.Get("/runs/{id}/calls", runsHandler.Calls)
		}

		// Live analysis jobs
		if s.deps.AnalysisService != nil {
			analysisHandler := handlers.NewAnalysisHandler(s.deps.AnalysisService)
			r.Post("/analyses", analysisHandler.Start)
			r.Get("/analyses", analysisHandler.ListAll)
			r.Get("/analyses/active", analysisHandler.ListActive)
			r.Get("/analyses/{jobId}", analysisHandler.Get)
			r.Delete("/analyses/{jobId}", analysisHandler.Cancel)
		}

		if s.deps.Tester != nil {
			credentialsHandler := handlers.NewCredentialsHandler(s.deps.Tester)
			r.Post("/credentials/test", credentialsHandler.Test)
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
		WriteTimeout: 45 * time.Second, // credential test may wait on retries
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
