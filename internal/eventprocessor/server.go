// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer wraps an in-process NATS server with JetStream enabled.
type EmbeddedServer struct {
	server    *server.Server
	config    ServerConfig
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server. It returns
// an error if the server is not ready for connections within 30 seconds.
func NewEmbeddedServer(cfg *ServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName:         "loglens",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		NoLog:              true,
		NoSigs:             true,
		MaxPayload:         1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{
		server:    ns,
		config:    *cfg,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it to exit unless ctx is done
// first.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// JetStreamEnabled returns whether JetStream is enabled.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.server.JetStreamEnabled()
}
