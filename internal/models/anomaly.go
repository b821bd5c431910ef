// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import "time"

// AnomalyType names the detector family that produced an Anomaly.
type AnomalyType string

const (
	AnomalyTrafficSpike AnomalyType = "traffic_spike"
	AnomalyTrafficDrop  AnomalyType = "traffic_drop"
	AnomalyLatencySpike AnomalyType = "latency_spike"
	AnomalyErrorRate    AnomalyType = "error_rate"
	AnomalyStatusCode   AnomalyType = "status_code"
	AnomalyPathSpike    AnomalyType = "path_spike"
)

// Common metric names carried by MetricPoint.
const (
	MetricRequestCount    = "request_count"
	MetricAvgResponseTime = "avg_response_time_ms"
	MetricP95ResponseTime = "p95_response_time_ms"
	MetricErrorCount      = "error_count"
	MetricUniqueIPs       = "unique_ips"
)

// Anomaly is a derived fact about a metric time series. It is never mutated
// after the detector emits it.
type Anomaly struct {
	AnomalyID      string         `json:"anomaly_id,omitempty"`
	AnomalyType    AnomalyType    `json:"anomaly_type"`
	Severity       Severity       `json:"severity"`
	Timestamp      time.Time      `json:"timestamp"`
	MetricName     string         `json:"metric_name"`
	ExpectedValue  float64        `json:"expected_value"`
	ActualValue    float64        `json:"actual_value"`
	DeviationScore float64        `json:"deviation_score"`
	Description    string         `json:"description"`
	Context        map[string]any `json:"context"`
	Investigated   bool           `json:"investigated"`
}

// MetricPoint is one observation in a time series. Key identifies the series
// the point belongs to when several are interleaved (an endpoint or a path)
// and is empty for global series.
type MetricPoint struct {
	Timestamp time.Time          `json:"timestamp"`
	Key       string             `json:"key,omitempty"`
	Values    map[string]float64 `json:"values"`
}

// Value returns the named metric, or 0 when the point does not carry it.
func (p MetricPoint) Value(metric string) float64 {
	return p.Values[metric]
}

// ErrorWindow summarizes request outcomes over one time bucket.
type ErrorWindow struct {
	Timestamp      time.Time        `json:"timestamp"`
	TotalRequests  int64            `json:"total_requests"`
	ErrorCount     int64            `json:"error_count"`
	ErrorBreakdown map[uint16]int64 `json:"error_breakdown,omitempty"`
}

// StatusEvent is the count of one status code within a time bucket.
type StatusEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	StatusCode uint16    `json:"status_code"`
	Count      int64     `json:"count"`
}

// WindowMetrics are the inputs to the composite anomaly score of a window.
type WindowMetrics struct {
	TrafficVariance  float64 `json:"traffic_variance"`
	ErrorRate        float64 `json:"error_rate"`
	LatencyAnomalies int     `json:"latency_anomalies"`
}
