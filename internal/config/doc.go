// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package config provides layered configuration for Loglens.

Configuration is assembled with koanf v2 from three sources, lowest priority
first: built-in defaults (Defaults), an optional YAML file, and environment
variables. Command-line flags are applied by cmd/loglens on the loaded
struct. Validate rejects inconsistent settings with errors wrapping
ErrInvalidConfig.

# Configuration File

The file is taken from the path passed to Load, then CONFIG_PATH, then the
first existing entry of DefaultConfigPaths:

	ingest:
	  format: nginx
	  batch_size: 10000
	  rate_limit_threshold: 300
	  known_bad_ips: [203.0.113.7]
	database:
	  path: /data/loglens.duckdb
	  request_ttl_days: 90
	sessionizer:
	  group_by: ip_user_agent
	  timeout: 30m
	analysis:
	  schedule: "0 * * * *"

# Environment Variables

Only mapped variables are read. Commonly used ones:

  - INGEST_FORMAT, INGEST_BATCH_SIZE, KNOWN_BAD_IPS (comma separated)
  - INGEST_RATE_LIMIT_WINDOW, INGEST_RATE_LIMIT_THRESHOLD, STORE_TIMEOUT
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, REQUEST_TTL_DAYS, SECURITY_TTL_DAYS
  - SESSION_GROUP_BY, SESSION_TIMEOUT
  - ANOMALY_WINDOW_SIZE, ANOMALY_BUCKET, ANOMALY_LOOKBACK
  - ANALYSIS_SCHEDULE, PURGE_SCHEDULE
  - HTTP_HOST, HTTP_PORT, RATE_LIMIT_REQUESTS, CORS_ORIGINS
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Durations use Go syntax (30s, 5m, 168h).
*/
package config
