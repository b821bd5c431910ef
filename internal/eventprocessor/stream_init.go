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

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used by
// StreamInitializer.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer creates the security event stream before the first
// publish, since the publisher does not auto-provision.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates a stream initializer.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("stream config required")
	}
	return &StreamInitializer{js: js, config: *cfg}, nil
}

// EnsureStream creates or updates the stream. It is idempotent.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       s.config.Name,
		Subjects:   s.config.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     s.config.MaxAge,
		MaxBytes:   s.config.MaxBytes,
		MaxMsgs:    s.config.MaxMsgs,
		Duplicates: s.config.DuplicateWindow,
		Replicas:   s.config.Replicas,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}
