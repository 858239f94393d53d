/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package adminapi provides the HTTP API for inspecting and resetting the running scheduler.
package adminapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/service"
)

// Server is the admin HTTP server. It implements service.Unit.
type Server struct {
	HTTPServer *http.Server
	Logger     log.FieldLogger

	shutdownTimeout time.Duration
	addr            atomic.Value
	done            atomic.Value
}

var _ service.Unit = (*Server)(nil)

// NewServer creates a new admin Server that serves the given handler.
func NewServer(cfg *Config, handler http.Handler, logger log.FieldLogger) *Server {
	return &Server{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.Read,
			WriteTimeout:      cfg.Timeouts.Write,
		},
		Logger:          logger,
		shutdownTimeout: cfg.Timeouts.Shutdown,
	}
}

// Addr returns the address the server listens on, or an empty string if it is not listening yet.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// Start starts the server in a blocking way.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *Server) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.done.Store(done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting admin HTTP server...")

	listener, err := net.Listen("tcp", s.HTTPServer.Addr)
	if err != nil {
		logger.Error("admin HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	s.addr.Store(listener.Addr().String())

	if err = s.HTTPServer.Serve(listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("admin HTTP server closed")
			return
		}
		logger.Error("admin HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the server (gracefully or not).
func (s *Server) Stop(gracefully bool) error {
	defer s.waitDone()
	if !gracefully {
		s.Logger.Info("closing admin HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("admin HTTP server closing error", log.Error(err))
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.Logger.Info("shutting down admin HTTP server...", log.Duration("timeout", s.shutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("admin HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("admin HTTP server shut down")
	return nil
}

func (s *Server) waitDone() {
	if done, ok := s.done.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}
