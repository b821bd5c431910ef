// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the store ping of the health endpoints.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Health reports store connectivity and uptime. It always answers 200;
// a failed ping shows as "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.ping(r.Context()) == nil
	status := "healthy"
	if !connected {
		status = "degraded"
	}

	NewResponseWriter(w, r).Success(HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: connected,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 503 until the store responds to a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database is not reachable")
		return
	}
	rw.Success(map[string]interface{}{"ready": true})
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}
