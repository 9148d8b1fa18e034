package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer builds the router for the given handlers.
func NewServer(h *Handlers, hc *HealthChecker, metrics http.Handler, allowedOrigins []string) *Server {
	return &Server{handler: SetupRoutes(h, hc, metrics, allowedOrigins)}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string, readTimeout, writeTimeout time.Duration) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
