// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/tomtom215/loglens/internal/models"
)

// bucketExpr truncates timestamp to a bucket of ? microseconds since the
// Unix epoch. It consumes two bucket-width arguments.
const bucketExpr = `make_timestamp((epoch_us(timestamp) // ?) * ?)`

// bucketStart aligns t to the same bucket grid as bucketExpr.
func bucketStart(t time.Time, bucket time.Duration) time.Time {
	us := bucket.Microseconds()
	return time.UnixMicro(t.UTC().UnixMicro() / us * us).UTC()
}

// buckets lists the bucket starts covering [from, to).
func buckets(from, to time.Time, bucket time.Duration) []time.Time {
	var out []time.Time
	for ts := bucketStart(from, bucket); ts.Before(to); ts = ts.Add(bucket) {
		out = append(out, ts)
	}
	return out
}

// TrafficSeries returns one point per bucket in [from, to) carrying
// request_count, avg_response_time_ms, p95_response_time_ms, error_count
// and unique_ips. Buckets without traffic are present with zero values.
func (db *DB) TrafficSeries(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.MetricPoint, error) {
	const q = `SELECT
		` + bucketExpr + ` AS bucket,
		COUNT(*) AS requests,
		COALESCE(AVG(response_time_ms), 0) AS avg_rt,
		COALESCE(quantile_cont(response_time_ms, 0.95), 0) AS p95_rt,
		COUNT(*) FILTER (WHERE status_code >= 400) AS errors,
		COUNT(DISTINCT ip_address) AS unique_ips
	FROM fact_requests
	WHERE timestamp >= ? AND timestamp < ?
	GROUP BY bucket
	ORDER BY bucket`

	us := bucket.Microseconds()
	found := make(map[int64]map[string]float64)
	err := db.query(ctx, "traffic_series", "fact_requests", q, func(rows *sql.Rows) error {
		var (
			ts             time.Time
			requests, errs int64
			uniqueIPs      int64
			avgRT, p95RT   float64
		)
		if err := rows.Scan(&ts, &requests, &avgRT, &p95RT, &errs, &uniqueIPs); err != nil {
			return err
		}
		found[ts.UTC().UnixMicro()] = map[string]float64{
			models.MetricRequestCount:    float64(requests),
			models.MetricAvgResponseTime: avgRT,
			models.MetricP95ResponseTime: p95RT,
			models.MetricErrorCount:      float64(errs),
			models.MetricUniqueIPs:       float64(uniqueIPs),
		}
		return nil
	}, us, us, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	series := []models.MetricPoint{}
	for _, ts := range buckets(from, to, bucket) {
		values, ok := found[ts.UnixMicro()]
		if !ok {
			values = map[string]float64{
				models.MetricRequestCount:    0,
				models.MetricAvgResponseTime: 0,
				models.MetricP95ResponseTime: 0,
				models.MetricErrorCount:      0,
				models.MetricUniqueIPs:       0,
			}
		}
		series = append(series, models.MetricPoint{Timestamp: ts, Values: values})
	}
	return series, nil
}

// LatencySeries returns per-path latency points (Key is the path) for the
// limit busiest timed paths. Buckets in which a path had no timed requests
// are omitted.
func (db *DB) LatencySeries(ctx context.Context, from, to time.Time, bucket time.Duration, limit int) ([]models.MetricPoint, error) {
	const q = `WITH top AS (
		SELECT path
		FROM fact_requests
		WHERE timestamp >= ? AND timestamp < ? AND response_time_ms IS NOT NULL
		GROUP BY path
		ORDER BY COUNT(*) DESC, path
		LIMIT ?
	)
	SELECT
		path,
		` + bucketExpr + ` AS bucket,
		AVG(response_time_ms) AS avg_rt,
		quantile_cont(response_time_ms, 0.95) AS p95_rt,
		COUNT(*) AS requests
	FROM fact_requests
	WHERE path IN (SELECT path FROM top)
		AND timestamp >= ? AND timestamp < ?
		AND response_time_ms IS NOT NULL
	GROUP BY path, bucket
	ORDER BY path, bucket`

	us := bucket.Microseconds()
	series := []models.MetricPoint{}
	err := db.query(ctx, "latency_series", "fact_requests", q, func(rows *sql.Rows) error {
		var (
			p        models.MetricPoint
			avgRT    float64
			p95RT    float64
			requests int64
		)
		if err := rows.Scan(&p.Key, &p.Timestamp, &avgRT, &p95RT, &requests); err != nil {
			return err
		}
		p.Timestamp = p.Timestamp.UTC()
		p.Values = map[string]float64{
			models.MetricAvgResponseTime: avgRT,
			models.MetricP95ResponseTime: p95RT,
			models.MetricRequestCount:    float64(requests),
		}
		series = append(series, p)
		return nil
	}, from.UTC(), to.UTC(), limit, us, us, from.UTC(), to.UTC())
	return series, err
}

// StatusEvents returns request counts per bucket and status code.
func (db *DB) StatusEvents(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.StatusEvent, error) {
	const q = `SELECT
		` + bucketExpr + ` AS bucket,
		status_code,
		COUNT(*) AS requests
	FROM fact_requests
	WHERE timestamp >= ? AND timestamp < ?
	GROUP BY bucket, status_code
	ORDER BY bucket, status_code`

	us := bucket.Microseconds()
	events := []models.StatusEvent{}
	err := db.query(ctx, "status_events", "fact_requests", q, func(rows *sql.Rows) error {
		var e models.StatusEvent
		if err := rows.Scan(&e.Timestamp, &e.StatusCode, &e.Count); err != nil {
			return err
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
		return nil
	}, us, us, from.UTC(), to.UTC())
	return events, err
}

// ErrorWindows folds StatusEvents into one window per bucket with traffic,
// breaking down the 4xx and 5xx responses by status code.
func (db *DB) ErrorWindows(ctx context.Context, from, to time.Time, bucket time.Duration) ([]models.ErrorWindow, error) {
	events, err := db.StatusEvents(ctx, from, to, bucket)
	if err != nil {
		return nil, err
	}

	windows := []models.ErrorWindow{}
	index := make(map[int64]int)
	for _, e := range events {
		key := e.Timestamp.UnixMicro()
		i, ok := index[key]
		if !ok {
			windows = append(windows, models.ErrorWindow{
				Timestamp:      e.Timestamp,
				ErrorBreakdown: map[uint16]int64{},
			})
			i = len(windows) - 1
			index[key] = i
		}
		w := &windows[i]
		w.TotalRequests += e.Count
		if e.StatusCode >= 400 {
			w.ErrorCount += e.Count
			w.ErrorBreakdown[e.StatusCode] += e.Count
		}
	}
	return windows, nil
}

// PathSeries returns per-path request counts (Key is the path) for the
// limit busiest paths, zero-filled across every bucket in [from, to).
func (db *DB) PathSeries(ctx context.Context, from, to time.Time, bucket time.Duration, limit int) ([]models.MetricPoint, error) {
	const q = `WITH top AS (
		SELECT path
		FROM fact_requests
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY path
		ORDER BY COUNT(*) DESC, path
		LIMIT ?
	)
	SELECT
		path,
		` + bucketExpr + ` AS bucket,
		COUNT(*) AS requests
	FROM fact_requests
	WHERE path IN (SELECT path FROM top)
		AND timestamp >= ? AND timestamp < ?
	GROUP BY path, bucket
	ORDER BY path, bucket`

	us := bucket.Microseconds()
	counts := make(map[string]map[int64]int64)
	var paths []string
	err := db.query(ctx, "path_series", "fact_requests", q, func(rows *sql.Rows) error {
		var (
			path     string
			ts       time.Time
			requests int64
		)
		if err := rows.Scan(&path, &ts, &requests); err != nil {
			return err
		}
		byBucket, ok := counts[path]
		if !ok {
			byBucket = make(map[int64]int64)
			counts[path] = byBucket
			paths = append(paths, path)
		}
		byBucket[ts.UTC().UnixMicro()] = requests
		return nil
	}, from.UTC(), to.UTC(), limit, us, us, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	grid := buckets(from, to, bucket)
	series := make([]models.MetricPoint, 0, len(paths)*len(grid))
	for _, path := range paths {
		for _, ts := range grid {
			series = append(series, models.MetricPoint{
				Timestamp: ts,
				Key:       path,
				Values: map[string]float64{
					models.MetricRequestCount: float64(counts[path][ts.UnixMicro()]),
				},
			})
		}
	}
	return series, nil
}

// RequestsBetween returns the stored requests in [from, to), oldest first.
func (db *DB) RequestsBetween(ctx context.Context, from, to time.Time) ([]models.EnrichedRequest, error) {
	const q = `SELECT
		request_id, timestamp, tz_offset_minutes, method, path, query_string, http_version,
		status_code, response_bytes, response_time_ms,
		ip_address, user_agent, referer, session_id, source_format,
		is_bot, bot_type, device_type, browser, os, country_code
	FROM fact_requests
	WHERE timestamp >= ? AND timestamp < ?
	ORDER BY timestamp, request_id`

	out := []models.EnrichedRequest{}
	err := db.query(ctx, "requests_between", "fact_requests", q, func(rows *sql.Rows) error {
		var (
			r      models.EnrichedRequest
			rt     sql.NullInt64
			offset int64
			format string
		)
		if err := rows.Scan(
			&r.RequestID, &r.Timestamp, &offset, &r.Method, &r.Path, &r.QueryString, &r.HTTPVersion,
			&r.StatusCode, &r.ResponseBytes, &rt,
			&r.IPAddress, &r.UserAgent, &r.Referer, &r.SessionID, &format,
			&r.Client.IsBot, &r.Client.BotType, &r.Client.DeviceType, &r.Client.Browser, &r.Client.OS,
			&r.CountryCode,
		); err != nil {
			return err
		}
		r.Timestamp = inOffset(r.Timestamp, offset)
		r.SourceFormat = models.Format(format)
		if rt.Valid {
			r.ResponseTimeMS = models.Uint32Ptr(uint32(rt.Int64))
		}
		out = append(out, r)
		return nil
	}, from.UTC(), to.UTC())
	return out, err
}

// RequestTimeRange returns the oldest and newest stored request timestamps.
// ok is false when the table is empty.
func (db *DB) RequestTimeRange(ctx context.Context) (oldest, newest time.Time, ok bool, err error) {
	const q = `SELECT MIN(timestamp), MAX(timestamp) FROM fact_requests`

	var minTS, maxTS sql.NullTime
	err = db.query(ctx, "time_range", "fact_requests", q, func(rows *sql.Rows) error {
		return rows.Scan(&minTS, &maxTS)
	})
	if err != nil || !minTS.Valid {
		return time.Time{}, time.Time{}, false, err
	}
	return minTS.Time.UTC(), maxTS.Time.UTC(), true, nil
}
