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
	"github.com/google/uuid"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

const insertRequestSQL = `INSERT INTO fact_requests (
	request_id, timestamp, tz_offset_minutes, date,
	method, path, query_string, http_version,
	status_code, response_bytes, response_time_ms,
	ip_address, user_agent, referer, session_id, source_format,
	is_bot, bot_type, device_type, browser, os,
	country_code, threat_count
) VALUES (?, ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertRequests writes a batch of enriched requests in one transaction and
// returns the number of rows written. The batch is all-or-nothing: on error
// no rows are written. Requests without a RequestID are assigned one.
//
// Timestamps are stored in UTC with the source's UTC offset alongside, so
// reads return the instant in the zone the log line was written in.
func (db *DB) InsertRequests(ctx context.Context, batch []models.EnrichedRequest) (inserted int, err error) {
	if len(batch) == 0 {
		return 0, nil
	}
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "fact_requests", time.Since(start), err)
	}()

	err = db.inTx(ctx, insertRequestSQL, func(stmt *sql.Stmt) error {
		for i := range batch {
			r := &batch[i]
			if r.RequestID == "" {
				r.RequestID = uuid.NewString()
			}
			ts := r.Timestamp.UTC()
			if _, execErr := stmt.ExecContext(ctx,
				r.RequestID, ts, offsetMinutes(r.Timestamp), ts,
				r.Method, r.Path, r.QueryString, r.HTTPVersion,
				int64(r.StatusCode), int64(r.ResponseBytes), nullableUint32(r.ResponseTimeMS),
				r.IPAddress, r.UserAgent, r.Referer, r.SessionID, string(r.SourceFormat),
				r.Client.IsBot, r.Client.BotType, r.Client.DeviceType, r.Client.Browser, r.Client.OS,
				r.CountryCode, int64(len(r.Threats)),
			); execErr != nil {
				return fmt.Errorf("failed to insert request %d: %w", i, execErr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

const insertSecurityEventSQL = `INSERT INTO security_events (
	event_id, timestamp, threat_type, severity, ip_address, path,
	description, pattern_matched, confidence, blocked, notified
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`

// InsertSecurityEvents writes security events in one transaction. Events
// without an EventID are assigned one; re-inserting an existing event ID is
// a no-op.
func (db *DB) InsertSecurityEvents(ctx context.Context, events []models.SecurityEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "security_events", time.Since(start), err)
	}()

	return db.inTx(ctx, insertSecurityEventSQL, func(stmt *sql.Stmt) error {
		for i := range events {
			e := &events[i]
			if e.EventID == "" {
				e.EventID = uuid.NewString()
			}
			if _, execErr := stmt.ExecContext(ctx,
				e.EventID, e.Timestamp.UTC(), string(e.ThreatType), string(e.Severity),
				e.IPAddress, e.Path, e.Description, e.PatternMatched, e.Confidence,
				e.Blocked, e.Notified,
			); execErr != nil {
				return fmt.Errorf("failed to insert security event %s: %w", e.EventID, execErr)
			}
		}
		return nil
	})
}

const insertSessionSQL = `INSERT OR REPLACE INTO fact_sessions (
	session_id, start_time, end_time, duration_seconds, page_views, unique_pages,
	total_bytes, avg_response_time_ms, entry_page, exit_page,
	is_bounce, converted, ip_address, user_agent, is_bot
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertSessions upserts sessions by session ID, so recomputing a window
// replaces its sessions instead of duplicating them.
func (db *DB) InsertSessions(ctx context.Context, sessions []models.Session) (err error) {
	if len(sessions) == 0 {
		return nil
	}
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("upsert", "fact_sessions", time.Since(start), err)
	}()

	return db.inTx(ctx, insertSessionSQL, func(stmt *sql.Stmt) error {
		for i := range sessions {
			s := &sessions[i]
			if _, execErr := stmt.ExecContext(ctx,
				s.SessionID, s.StartTime.UTC(), s.EndTime.UTC(), s.DurationSeconds,
				s.PageViews, s.UniquePages, int64(s.TotalBytes), s.AvgResponseTimeMS,
				s.EntryPage, s.ExitPage, s.IsBounce, s.Converted,
				s.IPAddress, s.UserAgent, s.IsBot,
			); execErr != nil {
				return fmt.Errorf("failed to insert session %s: %w", s.SessionID, execErr)
			}
		}
		return nil
	})
}

const insertAnomalySQL = `INSERT INTO anomalies (
	anomaly_id, detected_at, anomaly_type, severity, metric_name,
	expected_value, actual_value, deviation_score, description, context, investigated
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`

// InsertAnomalies writes anomalies, skipping IDs that already exist.
// Anomalies without an ID are assigned a random one.
func (db *DB) InsertAnomalies(ctx context.Context, anomalies []models.Anomaly) (err error) {
	if len(anomalies) == 0 {
		return nil
	}
	ctx, cancel, err := db.begin(ctx)
	defer cancel()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "anomalies", time.Since(start), err)
	}()

	return db.inTx(ctx, insertAnomalySQL, func(stmt *sql.Stmt) error {
		for i := range anomalies {
			a := &anomalies[i]
			if a.AnomalyID == "" {
				a.AnomalyID = uuid.NewString()
			}
			ctxJSON, marshalErr := json.Marshal(a.Context)
			if marshalErr != nil {
				return fmt.Errorf("failed to encode context of anomaly %s: %w", a.AnomalyID, marshalErr)
			}
			if _, execErr := stmt.ExecContext(ctx,
				a.AnomalyID, a.Timestamp.UTC(), string(a.AnomalyType), string(a.Severity),
				a.MetricName, a.ExpectedValue, a.ActualValue, a.DeviationScore,
				a.Description, string(ctxJSON), a.Investigated,
			); execErr != nil {
				return fmt.Errorf("failed to insert anomaly %s: %w", a.AnomalyID, execErr)
			}
		}
		return nil
	})
}

// inTx prepares query inside a transaction and hands the statement to fn.
// The transaction commits when fn succeeds and rolls back otherwise.
func (db *DB) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close prepared statement")
		}
	}()

	if err = fn(stmt); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// offsetMinutes returns the UTC offset of t in whole minutes.
func offsetMinutes(t time.Time) int64 {
	_, offset := t.Zone()
	return int64(offset / 60)
}

// inOffset returns t in the fixed zone offset minutes east of UTC.
func inOffset(t time.Time, minutes int64) time.Time {
	if minutes == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", int(minutes)*60))
}

func nullableUint32(v *uint32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
