// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/loglens/internal/models"
)

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=abc", -1},
		{"?limit=", 20},
		{"?other=3", 20},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/x"+tt.query, nil)
		if got := getIntParam(r, "limit", 20); got != tt.want {
			t.Errorf("getIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestGetFloatParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?threshold_ms=12.5&bad=x", nil)
	if got := getFloatParam(r, "threshold_ms", 1000); got != 12.5 {
		t.Errorf("getFloatParam = %v, want 12.5", got)
	}
	if got := getFloatParam(r, "bad", 1000); got != -1 {
		t.Errorf("getFloatParam(bad) = %v, want -1", got)
	}
	if got := getFloatParam(r, "missing", 1000); got != 1000 {
		t.Errorf("getFloatParam(missing) = %v, want 1000", got)
	}
}

func TestWindowRequest_Since(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	got := WindowRequest{Days: 7}.Since(now)
	want := time.Date(2024, 3, 3, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("Since = %v, want %v", got, want)
	}
}

func TestSeverityRequest(t *testing.T) {
	if got := (SeverityRequest{MinSeverity: "critical"}).Severity(); got != models.SeverityCritical {
		t.Errorf("Severity() = %q, want critical", got)
	}
	if apiErr := validateRequest(&SeverityRequest{WindowRequest: WindowRequest{Days: 1, Limit: 1}}); apiErr != nil {
		t.Errorf("empty min_severity rejected: %+v", apiErr)
	}
	if apiErr := validateRequest(&SeverityRequest{WindowRequest: WindowRequest{Days: 1, Limit: 1}, MinSeverity: "loud"}); apiErr == nil {
		t.Error("invalid min_severity accepted")
	}
}

func TestSeriesRequest_Duration(t *testing.T) {
	if got := (SeriesRequest{Days: 1, Bucket: "15m"}).Duration(); got != 15*time.Minute {
		t.Errorf("Duration() = %v, want 15m", got)
	}
}
