// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/models"
)

// Bus is a stub when NATS dependencies are not available.
type Bus struct{}

// Start returns ErrNATSNotEnabled.
func Start(_ context.Context, _ *config.NATSConfig) (*Bus, error) {
	return nil, ErrNATSNotEnabled
}

// URL returns an empty string.
func (b *Bus) URL() string {
	return ""
}

// PublishSecurityEvents returns ErrNATSNotEnabled.
func (b *Bus) PublishSecurityEvents(_ context.Context, _ []models.SecurityEvent) error {
	return ErrNATSNotEnabled
}

// Close is a no-op stub.
func (b *Bus) Close(_ context.Context) error {
	return nil
}

// StartWithSettings returns ErrNATSNotEnabled.
func StartWithSettings(_ context.Context, _ Settings) (*Bus, error) {
	return nil, ErrNATSNotEnabled
}
