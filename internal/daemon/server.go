// Package daemon serves the scenario catalog and the solution checker
// over HTTP.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/checker"
	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/scenario"
)

// APIPrefix is the path prefix of every catalog route
const APIPrefix = "/api/v1"

// Server represents the oaspractice daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	logger  *slog.Logger
	version string

	registry *scenario.Registry
	checker  *checker.Checker
	metrics  *metrics
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config        *config.LocalConfig
	ScenariosPath string
	Version       string
	Logger        *slog.Logger
}

// NewServer creates a daemon server and loads the scenarios
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:      cfg.Config,
		router:   http.NewServeMux(),
		logger:   logger,
		version:  version,
		registry: scenario.NewRegistry(scenario.NewLoader(cfg.ScenariosPath), logger),
		checker:  checker.New(logger),
	}

	s.metrics = newMetrics(s.registry.Count)

	if err := s.registry.Load(); err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}

	s.setupRoutes()

	handler := recoveryMiddleware(logger)(
		loggingMiddleware(logger)(
			corsMiddleware(cfg.Config.Daemon.CORSOrigins)(
				correlationIDMiddleware(
					s.metrics.middleware(s.router)))))

	s.server = &http.Server{
		Addr:         cfg.Config.Daemon.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET "+APIPrefix+"/health", s.handleHealth)

	s.router.HandleFunc("GET "+APIPrefix+"/scenarios", s.handleListScenarios)
	s.router.HandleFunc("GET "+APIPrefix+"/scenarios/topics", s.handleListTopics)
	s.router.HandleFunc("GET "+APIPrefix+"/scenarios/{id}", s.handleGetScenario)
	s.router.HandleFunc("POST "+APIPrefix+"/scenarios/{id}/validate", s.handleValidate)

	s.router.Handle("GET /metrics", s.metrics.handler())
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Registry exposes the scenario registry for hot reload
func (s *Server) Registry() *scenario.Registry {
	return s.registry
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting oaspractice daemon",
		"addr", s.server.Addr,
		"version", s.version,
		"scenarios", s.registry.Count(),
		"cors_origins", s.cfg.Daemon.CORSOrigins,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}
