// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/loglens/internal/logging"
)

// defaultShutdownTimeout is used when no positive timeout is configured.
const defaultShutdownTimeout = 10 * time.Second

// HTTPServer matches the *http.Server lifecycle methods so tests can
// substitute a fake.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the query API under the supervisor.
//
// ListenAndServe runs in a goroutine; Serve returns when the server fails
// or, after context cancellation, once Shutdown has drained connections
// for at most shutdownTimeout.
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService creates the service. addr is only used for logging.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.Info().Str("addr", h.addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled, so the drain gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh

		logging.Info().Str("addr", h.addr).Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture log messages.
func (h *HTTPServerService) String() string {
	return h.name
}
