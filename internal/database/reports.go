// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// severityRankSQL ranks severities for threshold filters.
const severityRankSQL = `CASE severity
	WHEN 'critical' THEN 4
	WHEN 'high' THEN 3
	WHEN 'medium' THEN 2
	WHEN 'low' THEN 1
	ELSE 0 END`

// query runs a read-only query, records its metric and hands the rows to scan.
func (db *DB) query(ctx context.Context, operation, table, q string, scan func(*sql.Rows) error, args ...any) (err error) {
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery(operation, table, time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s query failed: %w", operation, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		if err = scan(rows); err != nil {
			return fmt.Errorf("%s scan failed: %w", operation, err)
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("%s iteration failed: %w", operation, err)
	}
	return nil
}

// TopPaths returns the most requested paths since the given time.
func (db *DB) TopPaths(ctx context.Context, since time.Time, limit int) ([]models.TopPath, error) {
	const q = `SELECT
		path,
		COUNT(*) AS requests,
		COUNT(DISTINCT ip_address) AS unique_visitors,
		COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms,
		COUNT(*) FILTER (WHERE status_code >= 400) AS error_count
	FROM fact_requests
	WHERE timestamp >= ?
	GROUP BY path
	ORDER BY requests DESC, path
	LIMIT ?`

	out := []models.TopPath{}
	err := db.query(ctx, "top_paths", "fact_requests", q, func(rows *sql.Rows) error {
		var p models.TopPath
		if err := rows.Scan(&p.Path, &p.Requests, &p.UniqueVisitors, &p.AvgResponseTimeMS, &p.ErrorCount); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, since.UTC(), limit)
	return out, err
}

// EndpointLatency returns response time percentiles per path, slowest p95
// first. Requests without timing are ignored for the percentiles.
func (db *DB) EndpointLatency(ctx context.Context, since time.Time, limit int) ([]models.EndpointLatency, error) {
	const q = `SELECT
		path,
		COUNT(*) AS requests,
		quantile_cont(response_time_ms, 0.50) AS p50,
		quantile_cont(response_time_ms, 0.95) AS p95,
		quantile_cont(response_time_ms, 0.99) AS p99,
		CAST(COUNT(*) FILTER (WHERE status_code >= 400) AS DOUBLE) * 100 / COUNT(*) AS error_rate
	FROM fact_requests
	WHERE timestamp >= ? AND response_time_ms IS NOT NULL
	GROUP BY path
	ORDER BY p95 DESC, path
	LIMIT ?`

	out := []models.EndpointLatency{}
	err := db.query(ctx, "endpoint_latency", "fact_requests", q, func(rows *sql.Rows) error {
		var e models.EndpointLatency
		if err := rows.Scan(&e.Path, &e.Requests, &e.P50MS, &e.P95MS, &e.P99MS, &e.ErrorRatePct); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}, since.UTC(), limit)
	return out, err
}

// BotTraffic returns the bot share of traffic and its breakdown by bot type.
func (db *DB) BotTraffic(ctx context.Context, since time.Time) (*models.BotTrafficReport, error) {
	const totalsQ = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE is_bot)
	FROM fact_requests
	WHERE timestamp >= ?`

	const byTypeQ = `SELECT bot_type, COUNT(*) AS requests
	FROM fact_requests
	WHERE timestamp >= ? AND is_bot
	GROUP BY bot_type
	ORDER BY requests DESC, bot_type`

	report := &models.BotTrafficReport{ByType: []models.BotTrafficStat{}}
	err := db.query(ctx, "bot_traffic", "fact_requests", totalsQ, func(rows *sql.Rows) error {
		return rows.Scan(&report.TotalRequests, &report.BotRequests)
	}, since.UTC())
	if err != nil {
		return nil, err
	}
	if report.TotalRequests > 0 {
		report.BotRatio = float64(report.BotRequests) / float64(report.TotalRequests)
	}

	err = db.query(ctx, "bot_traffic", "fact_requests", byTypeQ, func(rows *sql.Rows) error {
		var s models.BotTrafficStat
		if err := rows.Scan(&s.BotType, &s.Requests); err != nil {
			return err
		}
		report.ByType = append(report.ByType, s)
		return nil
	}, since.UTC())
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RecentSecurityEvents returns the newest security events at or above the
// given severity. An empty minSeverity returns all severities.
func (db *DB) RecentSecurityEvents(ctx context.Context, limit int, minSeverity models.Severity) ([]models.SecurityEvent, error) {
	q := `SELECT event_id, timestamp, threat_type, severity, ip_address, path,
		description, pattern_matched, confidence, blocked, notified
	FROM security_events
	WHERE ` + severityRankSQL + ` >= ?
	ORDER BY timestamp DESC, event_id
	LIMIT ?`

	out := []models.SecurityEvent{}
	err := db.query(ctx, "recent_security_events", "security_events", q, func(rows *sql.Rows) error {
		var (
			e                    models.SecurityEvent
			threatType, severity string
		)
		if err := rows.Scan(&e.EventID, &e.Timestamp, &threatType, &severity, &e.IPAddress, &e.Path,
			&e.Description, &e.PatternMatched, &e.Confidence, &e.Blocked, &e.Notified); err != nil {
			return err
		}
		e.ThreatType = models.ThreatType(threatType)
		e.Severity = models.Severity(severity)
		out = append(out, e)
		return nil
	}, minSeverity.Rank(), limit)
	return out, err
}

// HourlyTraffic returns per-hour request totals since the given time.
func (db *DB) HourlyTraffic(ctx context.Context, since time.Time) ([]models.HourlyTraffic, error) {
	const q = `SELECT
		date_trunc('hour', timestamp) AS hour,
		COUNT(*) AS requests,
		COUNT(DISTINCT ip_address) AS unique_ips,
		COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms,
		COUNT(*) FILTER (WHERE status_code >= 400) AS errors,
		CAST(COALESCE(SUM(response_bytes), 0) AS BIGINT) AS bytes
	FROM fact_requests
	WHERE timestamp >= ?
	GROUP BY hour
	ORDER BY hour`

	out := []models.HourlyTraffic{}
	err := db.query(ctx, "hourly_traffic", "fact_requests", q, func(rows *sql.Rows) error {
		var h models.HourlyTraffic
		if err := rows.Scan(&h.Hour, &h.Requests, &h.UniqueIPs, &h.AvgResponseTimeMS, &h.Errors, &h.Bytes); err != nil {
			return err
		}
		out = append(out, h)
		return nil
	}, since.UTC())
	return out, err
}

// DailySummary returns per-day totals and latency percentiles.
func (db *DB) DailySummary(ctx context.Context, since time.Time) ([]models.DailySummary, error) {
	const q = `SELECT
		date,
		COUNT(*) AS requests,
		COUNT(DISTINCT ip_address) AS unique_ips,
		COUNT(*) FILTER (WHERE is_bot) AS bot_requests,
		COUNT(*) FILTER (WHERE status_code >= 400) AS error_requests,
		COALESCE(quantile_cont(response_time_ms, 0.50), 0) AS p50,
		COALESCE(quantile_cont(response_time_ms, 0.95), 0) AS p95,
		COALESCE(quantile_cont(response_time_ms, 0.99), 0) AS p99,
		CAST(COALESCE(SUM(response_bytes), 0) AS BIGINT) AS total_bytes
	FROM fact_requests
	WHERE timestamp >= ?
	GROUP BY date
	ORDER BY date`

	out := []models.DailySummary{}
	err := db.query(ctx, "daily_summary", "fact_requests", q, func(rows *sql.Rows) error {
		var d models.DailySummary
		if err := rows.Scan(&d.Date, &d.Requests, &d.UniqueIPs, &d.BotRequests, &d.ErrorRequests,
			&d.P50MS, &d.P95MS, &d.P99MS, &d.TotalBytes); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}, since.UTC())
	return out, err
}

// SlowEndpoints returns paths whose p95 latency exceeds thresholdMS, with
// at least minRequests timed requests, slowest first.
func (db *DB) SlowEndpoints(ctx context.Context, since time.Time, thresholdMS float64, minRequests, limit int) ([]models.EndpointLatency, error) {
	const q = `SELECT
		path,
		COUNT(*) AS requests,
		quantile_cont(response_time_ms, 0.50) AS p50,
		quantile_cont(response_time_ms, 0.95) AS p95,
		quantile_cont(response_time_ms, 0.99) AS p99,
		CAST(COUNT(*) FILTER (WHERE status_code >= 400) AS DOUBLE) * 100 / COUNT(*) AS error_rate
	FROM fact_requests
	WHERE timestamp >= ? AND response_time_ms > 0
	GROUP BY path
	HAVING quantile_cont(response_time_ms, 0.95) > ? AND COUNT(*) >= ?
	ORDER BY p95 DESC, path
	LIMIT ?`

	out := []models.EndpointLatency{}
	err := db.query(ctx, "slow_endpoints", "fact_requests", q, func(rows *sql.Rows) error {
		var e models.EndpointLatency
		if err := rows.Scan(&e.Path, &e.Requests, &e.P50MS, &e.P95MS, &e.P99MS, &e.ErrorRatePct); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}, since.UTC(), thresholdMS, minRequests, limit)
	return out, err
}

// TopIPs returns the busiest client addresses since the given time.
func (db *DB) TopIPs(ctx context.Context, since time.Time, limit int) ([]models.TopIP, error) {
	const q = `SELECT
		ip_address,
		COUNT(*) AS requests,
		COUNT(DISTINCT path) AS unique_pages,
		COUNT(*) FILTER (WHERE status_code >= 400) AS errors,
		COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms,
		bool_or(is_bot) AS is_bot
	FROM fact_requests
	WHERE timestamp >= ?
	GROUP BY ip_address
	ORDER BY requests DESC, ip_address
	LIMIT ?`

	out := []models.TopIP{}
	err := db.query(ctx, "top_ips", "fact_requests", q, func(rows *sql.Rows) error {
		var ip models.TopIP
		if err := rows.Scan(&ip.IPAddress, &ip.Requests, &ip.UniquePages, &ip.Errors, &ip.AvgResponseTimeMS, &ip.IsBot); err != nil {
			return err
		}
		out = append(out, ip)
		return nil
	}, since.UTC(), limit)
	return out, err
}

// RecentAnomalies returns the newest anomalies detected since the given
// time at or above minSeverity. An empty minSeverity returns all.
func (db *DB) RecentAnomalies(ctx context.Context, since time.Time, limit int, minSeverity models.Severity) ([]models.Anomaly, error) {
	q := `SELECT anomaly_id, detected_at, anomaly_type, severity, metric_name,
		expected_value, actual_value, deviation_score, description, context, investigated
	FROM anomalies
	WHERE detected_at >= ? AND ` + severityRankSQL + ` >= ?
	ORDER BY detected_at DESC, anomaly_id
	LIMIT ?`

	out := []models.Anomaly{}
	err := db.query(ctx, "recent_anomalies", "anomalies", q, func(rows *sql.Rows) error {
		var (
			a                     models.Anomaly
			anomalyType, severity string
			ctxJSON               sql.NullString
		)
		if err := rows.Scan(&a.AnomalyID, &a.Timestamp, &anomalyType, &severity, &a.MetricName,
			&a.ExpectedValue, &a.ActualValue, &a.DeviationScore, &a.Description, &ctxJSON, &a.Investigated); err != nil {
			return err
		}
		a.Timestamp = a.Timestamp.UTC()
		a.AnomalyType = models.AnomalyType(anomalyType)
		a.Severity = models.Severity(severity)
		if ctxJSON.Valid && ctxJSON.String != "" && ctxJSON.String != "null" {
			if err := json.Unmarshal([]byte(ctxJSON.String), &a.Context); err != nil {
				return fmt.Errorf("anomaly %s context: %w", a.AnomalyID, err)
			}
		}
		out = append(out, a)
		return nil
	}, since.UTC(), minSeverity.Rank(), limit)
	return out, err
}
