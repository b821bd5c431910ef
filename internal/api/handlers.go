// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"context"
	"time"

	"github.com/tomtom215/loglens/internal/models"
)

// Store is the query surface the handlers read from.
// It is satisfied by *database.DB.
type Store interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (map[string]int64, error)

	TopPaths(ctx context.Context, since time.Time, limit int) ([]models.TopPath, error)
	EndpointLatency(ctx context.Context, since time.Time, limit int) ([]models.EndpointLatency, error)
	SlowEndpoints(ctx context.Context, since time.Time, thresholdMS float64, minRequests, limit int) ([]models.EndpointLatency, error)
	TopIPs(ctx context.Context, since time.Time, limit int) ([]models.TopIP, error)
	BotTraffic(ctx context.Context, since time.Time) (*models.BotTrafficReport, error)
	RecentSecurityEvents(ctx context.Context, limit int, minSeverity models.Severity) ([]models.SecurityEvent, error)
	RecentAnomalies(ctx context.Context, since time.Time, limit int, minSeverity models.Severity) ([]models.Anomaly, error)
	HourlyTraffic(ctx context.Context, since time.Time) ([]models.HourlyTraffic, error)
	DailySummary(ctx context.Context, since time.Time) ([]models.DailySummary, error)
	TrafficSeries(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.MetricPoint, error)
}

// Handler serves the API endpoints.
type Handler struct {
	store     Store
	version   string
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a Handler over store. version is reported by /health.
func NewHandler(store Store, version string) *Handler {
	return &Handler{
		store:     store,
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}
