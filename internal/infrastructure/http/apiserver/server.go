// Package apiserver provides the JSON API HTTP server for recipe discovery
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/alchemorsel/discovery/internal/infrastructure/config"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/discovery/internal/infrastructure/monitoring"
	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	"github.com/alchemorsel/discovery/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server is the discovery JSON API server
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *chi.Mux
	handlers *handlers.DiscoveryHandlers
	health   *healthcheck.HealthCheck
	metrics  *monitoring.MetricsCollector
	limiter  *middleware.RateLimiter
	openAPI  *OpenAPIHandler
}

// NewServer creates a new API server instance. metrics and limiter may be nil.
func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	discoveryHandlers *handlers.DiscoveryHandlers,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	limiter *middleware.RateLimiter,
) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.Named("apiserver"),
		handlers: discoveryHandlers,
		health:   health,
		metrics:  metrics,
		limiter:  limiter,
		openAPI:  NewOpenAPIHandler(log),
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port)),
		Handler:        s.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}
	if s.config.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Get(pathOr(s.config.Monitoring.HealthCheckPath, "/health"), s.health.Handler())
	r.Get(pathOr(s.config.Monitoring.ReadinessPath, "/ready"), s.health.ReadinessHandler())
	r.Get("/live", s.health.LivenessHandler())
	if s.metrics != nil && s.config.Monitoring.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/api/v1/openapi.yaml", s.openAPI.ServeOpenAPISpec)

	r.Route("/api/v1/discover", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Use(middleware.JSONOnly())

		r.Post("/search", s.handlers.Search)
		r.Post("/reset", s.handlers.Reset)
		r.Get("/sessions/{id}", s.handlers.Session)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperrors.NewNotFoundError("Route"))
	})

	return r
}

// Handler returns the root handler, instrumented with OpenTelemetry
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "discovery-api",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting discovery API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve accepts connections on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting discovery API server", zap.String("address", ln.Addr().String()))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down discovery API server")
	return s.server.Shutdown(ctx)
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
