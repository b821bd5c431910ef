// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/loglens/internal/models"
	"github.com/tomtom215/loglens/internal/validation"
)

// Defaults applied when a query parameter is absent.
const (
	defaultDays        = 1
	defaultLimit       = 20
	defaultThresholdMS = 1000
	defaultMinRequests = 100
	defaultBucket      = "1h"
)

// WindowRequest is the look-back and row limit shared by ranking endpoints.
type WindowRequest struct {
	Days  int `query:"days" validate:"min=1,max=3650"`
	Limit int `query:"limit" validate:"min=1,max=1000"`
}

// SlowEndpointsRequest selects paths whose p95 latency exceeds ThresholdMS.
type SlowEndpointsRequest struct {
	WindowRequest
	ThresholdMS float64 `query:"threshold_ms" validate:"gt=0"`
	MinRequests int     `query:"min_requests" validate:"min=1"`
}

// SeverityRequest filters security events and anomalies by severity.
type SeverityRequest struct {
	WindowRequest
	MinSeverity string `query:"min_severity" validate:"omitempty,severity"`
}

// SeriesRequest selects the bucketed traffic series.
type SeriesRequest struct {
	Days   int    `query:"days" validate:"min=1,max=90"`
	Bucket string `query:"bucket" validate:"required,bucket"`
}

// Since returns the start of the look-back window relative to now.
func (r WindowRequest) Since(now time.Time) time.Time {
	return now.UTC().Add(-time.Duration(r.Days) * 24 * time.Hour)
}

// Duration returns the parsed bucket width. It is only meaningful after
// validation.
func (r SeriesRequest) Duration() time.Duration {
	d, _ := time.ParseDuration(r.Bucket)
	return d
}

// Severity returns the minimum severity, or "" for all.
func (r SeverityRequest) Severity() models.Severity {
	return models.ParseSeverity(r.MinSeverity)
}

func parseWindowRequest(r *http.Request) WindowRequest {
	return WindowRequest{
		Days:  getIntParam(r, "days", defaultDays),
		Limit: getIntParam(r, "limit", defaultLimit),
	}
}

// validateRequest validates v and returns the VALIDATION_ERROR body, or nil.
func validateRequest(v interface{}) *models.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
// A value that is not an integer maps to -1 so validation rejects it.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// getFloatParam is getIntParam for floating point parameters.
func getFloatParam(r *http.Request, key string, defaultValue float64) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return f
}

func getStringParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
