// Package server exposes the detection and abstraction endpoints over HTTP,
// streaming newline-delimited JSON snapshots as the pipeline produces them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rescriber/pii-gateway/internal/config"
	"github.com/rescriber/pii-gateway/internal/events"
	"github.com/rescriber/pii-gateway/internal/logger"
	"github.com/rescriber/pii-gateway/internal/pipeline"
	"go.uber.org/zap"
)

// Server represents the gateway HTTP server
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	pipeline *pipeline.Pipeline
	router   *mux.Router
	server   *http.Server
	hub      *events.Hub
}

// New creates a new gateway server around an already-constructed pipeline
func New(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) *Server {
	hub := events.NewHub(cfg.Events.Enabled, log.WithComponent("events").Logger)

	router := mux.NewRouter()

	server := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		pipeline: p,
		router:   router,
		hub:      hub,
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// WebSocket event feed
	s.router.HandleFunc("/ws", s.hub.HandleWebSocket).Methods("GET")

	// Streaming endpoints
	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/abstract", s.handleAbstract).Methods("POST")
}

// Start starts the HTTP server, serving TLS when a cert pair is configured
func (s *Server) Start() error {
	s.logger.Info("Starting PII gateway server",
		zap.Int("port", s.config.Server.Port),
		zap.String("engine_url", s.config.Engine.URL),
		zap.String("model", s.config.Engine.Model),
		zap.Bool("tls", s.config.Server.TLS.CertFile != ""),
	)

	// Start event hub in a separate goroutine
	go s.hub.Run()

	if s.config.Server.TLS.CertFile != "" {
		return s.server.ListenAndServeTLS(s.config.Server.TLS.CertFile, s.config.Server.TLS.KeyFile)
	}
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PII gateway server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"name":"pii-gateway",
		"model":%q,
		"chunk_size":%d,
		"events_enabled":%t
	}`, s.config.Engine.Model, s.config.Chunking.Size, s.config.Events.Enabled)
}
