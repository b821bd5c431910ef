// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

//go:build nats

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/models"
)

// Bus owns the event bus components for one process: the optional embedded
// server and the publisher.
type Bus struct {
	server    *EmbeddedServer
	publisher *Publisher
	url       string
}

// Start brings up the event bus described by cfg: it starts the embedded
// server when configured, ensures the stream exists and connects the
// publisher.
func Start(ctx context.Context, cfg *config.NATSConfig) (*Bus, error) {
	return StartWithSettings(ctx, SettingsFromConfig(cfg))
}

// StartWithSettings is Start with explicit component settings.
func StartWithSettings(ctx context.Context, s Settings) (*Bus, error) {
	b := &Bus{url: s.Publisher.URL}

	if s.Embedded {
		srv, err := NewEmbeddedServer(&s.Server)
		if err != nil {
			return nil, err
		}
		b.server = srv
		b.url = srv.ClientURL()
		logging.Info().Str("url", b.url).Str("store_dir", s.Server.StoreDir).Msg("Embedded NATS server started")
	}

	if err := ensureStream(ctx, b.url, &s.Stream); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	pubCfg := s.Publisher
	pubCfg.URL = b.url
	pub, err := NewPublisher(pubCfg, nil)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	pub.SetCircuitBreaker(NewCircuitBreaker(s.Breaker))
	b.publisher = pub

	logging.Info().
		Str("url", b.url).
		Str("stream", s.Stream.Name).
		Str("subject", pubCfg.Subject).
		Msg("Security event bus ready")
	return b, nil
}

func ensureStream(ctx context.Context, url string, cfg *StreamConfig) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	si, err := NewStreamInitializer(js, cfg)
	if err != nil {
		return err
	}
	_, err = si.EnsureStream(ctx)
	return err
}

// URL returns the NATS URL clients connect to.
func (b *Bus) URL() string {
	return b.url
}

// PublishSecurityEvents publishes events through the bus publisher.
func (b *Bus) PublishSecurityEvents(ctx context.Context, events []models.SecurityEvent) error {
	if b.publisher == nil {
		return ErrPublisherClosed
	}
	return b.publisher.PublishSecurityEvents(ctx, events)
}

// Close closes the publisher and stops the embedded server.
func (b *Bus) Close(ctx context.Context) error {
	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown NATS server: %w", err))
		}
	}
	return errors.Join(errs...)
}
