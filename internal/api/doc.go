// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package api provides the read-only HTTP query surface over the request store.

Every data endpoint answers with the models.APIResponse envelope:

	{
	  "status": "success",
	  "data": [...],
	  "metadata": {"timestamp": "...", "query_time_ms": 4, "request_id": "..."}
	}

Routes:

	GET /health                      store connectivity and uptime
	GET /health/live                 liveness probe
	GET /health/ready                readiness probe (503 when the store is down)
	GET /metrics                     Prometheus exposition
	GET /api/v1/paths/top            busiest paths (days, limit)
	GET /api/v1/paths/latency        latency percentiles per path (days, limit)
	GET /api/v1/paths/slow           paths whose p95 exceeds threshold_ms
	GET /api/v1/ips/top              busiest client addresses
	GET /api/v1/bots                 bot share of traffic
	GET /api/v1/security/events      recent security events (limit, min_severity)
	GET /api/v1/anomalies            recent anomalies (days, limit, min_severity)
	GET /api/v1/traffic/hourly       per-hour totals (days)
	GET /api/v1/traffic/daily        per-day totals and percentiles (days)
	GET /api/v1/traffic/series       bucketed series used by the anomaly detector
	GET /api/v1/database             row counts per table

Query parameters are bound into request structs and checked with
internal/validation before any query runs. The /api/v1 group is rate
limited per client IP with go-chi/httprate.
*/
package api
