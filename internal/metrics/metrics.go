// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the ingestion pipeline, the DuckDB store,
// batch analysis jobs and the HTTP query surface.

var (
	// Ingestion Metrics
	LinesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_lines_processed_total",
			Help: "Total number of log lines read, by format and outcome",
		},
		[]string{"format", "outcome"}, // outcome: "parsed", "parse_error", "blank"
	)

	TimestampFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_timestamp_fallbacks_total",
			Help: "Lines whose timestamp could not be parsed and were stamped with the ingest time",
		},
		[]string{"format"},
	)

	ClientsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_clients_classified_total",
			Help: "Requests classified by the client classifier",
		},
		[]string{"kind"}, // "bot", "human"
	)

	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_threats_detected_total",
			Help: "Security threats detected, by type and severity",
		},
		[]string{"threat_type", "severity"},
	)

	BatchFlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loglens_batch_flush_duration_seconds",
			Help:    "Duration of request batch writes to the store",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"}, // "success", "failure"
	)

	RowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_rows_inserted_total",
			Help: "Request rows acknowledged by the store",
		},
	)

	RowsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_rows_failed_total",
			Help: "Request rows lost to failed batch writes",
		},
	)

	SecurityEventsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_security_events_written_total",
			Help: "Security events flushed to the security event sink",
		},
		[]string{"outcome"},
	)

	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_ingest_runs_total",
			Help: "Completed ingestion runs by outcome",
		},
		[]string{"outcome"}, // "completed", "canceled", "skipped", "failed"
	)

	RateTrackerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loglens_rate_tracker_entries",
			Help: "Per-IP rate windows currently tracked",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_events_published_total",
			Help: "Security events published to NATS",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loglens_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Analysis Metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_anomalies_detected_total",
			Help: "Anomalies emitted by the anomaly detector",
		},
		[]string{"anomaly_type", "severity"},
	)

	SessionsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_sessions_built_total",
			Help: "Sessions reconstructed by the sessionizer",
		},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loglens_analysis_duration_seconds",
			Help:    "Duration of batch analysis runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	AnomalyScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loglens_anomaly_score",
			Help: "Composite anomaly score of the most recently analyzed window",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBatchFlush records one request batch write. Failed batches count
// their rows as lost.
func RecordBatchFlush(duration time.Duration, rows int, err error) {
	if err != nil {
		BatchFlushDuration.WithLabelValues("failure").Observe(duration.Seconds())
		RowsFailed.Add(float64(rows))
		return
	}
	BatchFlushDuration.WithLabelValues("success").Observe(duration.Seconds())
	RowsInserted.Add(float64(rows))
}

// RecordSecurityEvents records a security event flush.
func RecordSecurityEvents(count int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SecurityEventsWritten.WithLabelValues(outcome).Add(float64(count))
}

// RecordPublish records one NATS publish attempt.
func RecordPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failure").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

// RecordAnalysisRun records the duration and outcome of a batch analysis run.
func RecordAnalysisRun(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AnalysisDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
