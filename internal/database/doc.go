// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package database is the DuckDB-backed store for parsed requests,
// security events, sessions and anomalies.
//
// # Tables
//
//   - fact_requests: one row per ingested request, with its client
//     classification, a request_id and a date column for day-level scans
//   - security_events: one row per security threat, keyed by event_id
//   - fact_sessions: sessions rebuilt by analysis runs, keyed by session_id
//     and replaced on recomputation
//   - anomalies: detector output, keyed by anomaly_id
//
// DuckDB has no native partitioning or TTL. Day-level pruning relies on the
// date column and its index, and retention is enforced by PurgeExpired,
// which the serve mode runs on a schedule.
//
// # Writes
//
// InsertRequests and InsertSecurityEvents form the ingestion contract. Each
// call is a single transaction: a batch is either fully written or not at
// all, so the caller can count the batch as failed without partial rows.
//
// # Reads
//
// Reporting queries (TopPaths, EndpointLatency, BotTraffic,
// RecentSecurityEvents, HourlyTraffic, DailySummary) back the HTTP API.
// Series queries (TrafficSeries, LatencySeries, ErrorWindows, StatusEvents,
// PathSeries, RequestsBetween) feed the analysis jobs.
//
// Timestamps are stored in UTC. Every operation without a context deadline
// is bounded by a 30 second timeout and recorded in the duckdb_* metrics.
package database
