// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package metrics provides Prometheus metrics for Loglens.

Collectors are registered with the default registry through promauto and
exposed at /metrics when running `loglens serve`:

	curl http://localhost:8428/metrics

# Available Metrics

Ingestion:
  - loglens_lines_processed_total{format, outcome}
  - loglens_timestamp_fallbacks_total{format}
  - loglens_clients_classified_total{kind}
  - loglens_threats_detected_total{threat_type, severity}
  - loglens_batch_flush_duration_seconds{outcome}
  - loglens_rows_inserted_total, loglens_rows_failed_total
  - loglens_security_events_written_total{outcome}
  - loglens_ingest_runs_total{outcome}

Analysis:
  - loglens_anomalies_detected_total{anomaly_type, severity}
  - loglens_sessions_built_total
  - loglens_analysis_duration_seconds{outcome}
  - loglens_anomaly_score

Store and API:
  - duckdb_query_duration_seconds{operation, table}
  - api_requests_total{method, endpoint, status_code}
*/
package metrics
