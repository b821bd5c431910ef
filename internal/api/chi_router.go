// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers to their routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a new router.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// Health and metrics stay outside the rate limit so probes and scrapes
	// are never throttled.
	r.Route("/health", func(r chi.Router) {
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(PrometheusMetrics)
		r.Use(Compression)

		r.Get("/paths/top", router.handler.TopPaths)
		r.Get("/paths/latency", router.handler.EndpointLatency)
		r.Get("/paths/slow", router.handler.SlowEndpoints)
		r.Get("/ips/top", router.handler.TopIPs)
		r.Get("/bots", router.handler.BotTraffic)
		r.Get("/security/events", router.handler.SecurityEvents)
		r.Get("/anomalies", router.handler.Anomalies)
		r.Get("/traffic/hourly", router.handler.HourlyTraffic)
		r.Get("/traffic/daily", router.handler.DailySummary)
		r.Get("/traffic/series", router.handler.TrafficSeries)
		r.Get("/database", router.handler.DatabaseInfo)
	})

	return r
}
