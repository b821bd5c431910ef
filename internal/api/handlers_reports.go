// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"net/http"
)

// TopPaths handles GET /api/v1/paths/top.
func (h *Handler) TopPaths(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := parseWindowRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	paths, err := h.store.TopPaths(r.Context(), req.Since(h.now()), req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(paths)
}

// EndpointLatency handles GET /api/v1/paths/latency.
func (h *Handler) EndpointLatency(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := parseWindowRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	latency, err := h.store.EndpointLatency(r.Context(), req.Since(h.now()), req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(latency)
}

// SlowEndpoints handles GET /api/v1/paths/slow.
func (h *Handler) SlowEndpoints(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := SlowEndpointsRequest{
		WindowRequest: WindowRequest{
			Days:  getIntParam(r, "days", 7),
			Limit: getIntParam(r, "limit", defaultLimit),
		},
		ThresholdMS: getFloatParam(r, "threshold_ms", defaultThresholdMS),
		MinRequests: getIntParam(r, "min_requests", defaultMinRequests),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	slow, err := h.store.SlowEndpoints(r.Context(), req.Since(h.now()), req.ThresholdMS, req.MinRequests, req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(slow)
}

// TopIPs handles GET /api/v1/ips/top.
func (h *Handler) TopIPs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := parseWindowRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	ips, err := h.store.TopIPs(r.Context(), req.Since(h.now()), req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(ips)
}

// BotTraffic handles GET /api/v1/bots.
func (h *Handler) BotTraffic(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := parseWindowRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	report, err := h.store.BotTraffic(r.Context(), req.Since(h.now()))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(report)
}

// SecurityEvents handles GET /api/v1/security/events.
func (h *Handler) SecurityEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := SeverityRequest{
		WindowRequest: parseWindowRequest(r),
		MinSeverity:   getStringParam(r, "min_severity", ""),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	events, err := h.store.RecentSecurityEvents(r.Context(), req.Limit, req.Severity())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(events)
}

// Anomalies handles GET /api/v1/anomalies.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := SeverityRequest{
		WindowRequest: WindowRequest{
			Days:  getIntParam(r, "days", 7),
			Limit: getIntParam(r, "limit", defaultLimit),
		},
		MinSeverity: getStringParam(r, "min_severity", ""),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	anomalies, err := h.store.RecentAnomalies(r.Context(), req.Since(h.now()), req.Limit, req.Severity())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(anomalies)
}

// HourlyTraffic handles GET /api/v1/traffic/hourly.
func (h *Handler) HourlyTraffic(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := parseWindowRequest(r)
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	hours, err := h.store.HourlyTraffic(r.Context(), req.Since(h.now()))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(hours)
}

// DailySummary handles GET /api/v1/traffic/daily.
func (h *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := WindowRequest{
		Days:  getIntParam(r, "days", 7),
		Limit: defaultLimit,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	days, err := h.store.DailySummary(r.Context(), req.Since(h.now()))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(days)
}

// TrafficSeries handles GET /api/v1/traffic/series. The series ends at the
// start of the current bucket.
func (h *Handler) TrafficSeries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := SeriesRequest{
		Days:   getIntParam(r, "days", defaultDays),
		Bucket: getStringParam(r, "bucket", defaultBucket),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr)
		return
	}

	bucket := req.Duration()
	to := h.now().UTC().Truncate(bucket)
	from := WindowRequest{Days: req.Days}.Since(to)

	series, err := h.store.TrafficSeries(r.Context(), from, to, bucket)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(series)
}

// DatabaseInfo handles GET /api/v1/database.
func (h *Handler) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]interface{}{"tables": counts})
}
