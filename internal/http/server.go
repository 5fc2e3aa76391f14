// Package http exposes the trigger API: audit, reinforcement and content
// build jobs, gate evaluation, ingestion, and the brand bible.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/echorank/echorank/internal/config"
	"github.com/echorank/echorank/internal/http/middleware"
	"github.com/echorank/echorank/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Routes builds the route table. Exposed so tests can drive the mux
// without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/audit/{provider}", s.handler.HandleAudit)
	mux.HandleFunc("POST /v1/reinforce", s.handler.HandleReinforce)
	mux.HandleFunc("POST /v1/content/build", s.handler.HandleContentBuild)
	mux.HandleFunc("POST /v1/content/gate", s.handler.HandleContentGate)
	mux.HandleFunc("POST /v1/ingest", s.handler.HandleIngest)
	mux.HandleFunc("PUT /v1/bible", s.handler.HandleBibleUpdate)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
