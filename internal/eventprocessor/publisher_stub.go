// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

//go:build !nats

package eventprocessor

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loglens/internal/models"
)

// Publisher is a stub when NATS dependencies are not available.
// Build with -tags=nats to enable the Watermill publisher.
type Publisher struct{}

// NewPublisher returns ErrNATSNotEnabled.
func NewPublisher(_ PublisherConfig, _ interface{}) (*Publisher, error) {
	return nil, ErrNATSNotEnabled
}

// SetCircuitBreaker is a no-op stub.
func (p *Publisher) SetCircuitBreaker(_ *gobreaker.CircuitBreaker[any]) {}

// PublishEvent returns ErrNATSNotEnabled.
func (p *Publisher) PublishEvent(_ context.Context, _ *models.SecurityEvent) error {
	return ErrNATSNotEnabled
}

// PublishSecurityEvents returns ErrNATSNotEnabled.
func (p *Publisher) PublishSecurityEvents(_ context.Context, _ []models.SecurityEvent) error {
	return ErrNATSNotEnabled
}

// Close is a no-op stub.
func (p *Publisher) Close() error {
	return nil
}
