// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
)

// PurgeResult counts rows removed by PurgeExpired.
type PurgeResult struct {
	Requests       int64 `json:"requests"`
	Sessions       int64 `json:"sessions"`
	SecurityEvents int64 `json:"security_events"`
	Anomalies      int64 `json:"anomalies"`
}

// Total returns the number of rows removed across all tables.
func (r PurgeResult) Total() int64 {
	return r.Requests + r.Sessions + r.SecurityEvents + r.Anomalies
}

// PurgeExpired applies the retention policy relative to now. Requests and
// sessions older than RequestTTLDays and security events and anomalies
// older than SecurityTTLDays are deleted. A non-positive TTL keeps the
// table forever.
func (db *DB) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var result PurgeResult

	targets := []struct {
		table  string
		column string
		days   int
		count  *int64
	}{
		{"fact_requests", "timestamp", db.cfg.RequestTTLDays, &result.Requests},
		{"fact_sessions", "start_time", db.cfg.RequestTTLDays, &result.Sessions},
		{"security_events", "timestamp", db.cfg.SecurityTTLDays, &result.SecurityEvents},
		{"anomalies", "detected_at", db.cfg.SecurityTTLDays, &result.Anomalies},
	}

	for _, target := range targets {
		if target.days <= 0 {
			continue
		}
		cutoff := now.UTC().AddDate(0, 0, -target.days)
		n, err := db.deleteBefore(ctx, target.table, target.column, cutoff)
		if err != nil {
			return result, err
		}
		*target.count = n
	}

	if result.Total() > 0 {
		logging.Info().
			Int64("requests", result.Requests).
			Int64("sessions", result.Sessions).
			Int64("security_events", result.SecurityEvents).
			Int64("anomalies", result.Anomalies).
			Msg("Purged expired rows")
	}
	return result, nil
}

// deleteBefore removes rows of table whose column is older than cutoff.
// table and column come from the fixed retention list, never user input.
func (db *DB) deleteBefore(ctx context.Context, table, column string, cutoff time.Time) (n int64, err error) {
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("purge", table, time.Since(start), err)
	}()

	res, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, column), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", table, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows in %s: %w", table, err)
	}
	return n, nil
}

// Counts returns the row count of every table.
func (db *DB) Counts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
