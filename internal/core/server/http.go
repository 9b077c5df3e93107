package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/swayhq/sway/internal/core/config"
)

// HTTPServer manages the app's HTTP listener lifecycle.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	config   config.HTTPConfig
	logger   *slog.Logger
}

// NewHTTPServer wraps handler in an http.Server configured from cfg.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) (*HTTPServer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Listen binds the listener without serving. Addr is valid afterwards.
func (s *HTTPServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start binds the listener and serves requests, with TLS when a certificate
// pair is configured. It blocks until Shutdown and returns nil then.
func (s *HTTPServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logger.Info("HTTP server listening", "addr", s.Addr(), "tls", s.config.TLSEnabled())

	var err error
	if s.config.TLSEnabled() {
		err = s.server.ServeTLS(s.listener, s.config.TLSCert, s.config.TLSKey)
	} else {
		err = s.server.Serve(s.listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server with a 30-second timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed, forced stop: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
