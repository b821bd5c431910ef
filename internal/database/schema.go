// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"fmt"
)

// Timestamps are stored as UTC TIMESTAMP. TIMESTAMPTZ would require the ICU
// extension, which is never auto-loaded.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fact_requests (
		request_id        VARCHAR NOT NULL,
		timestamp         TIMESTAMP NOT NULL,
		tz_offset_minutes SMALLINT NOT NULL DEFAULT 0,
		date              DATE NOT NULL,
		method            VARCHAR,
		path              VARCHAR,
		query_string      VARCHAR,
		http_version      VARCHAR,
		status_code       USMALLINT,
		response_bytes    UBIGINT,
		response_time_ms  UINTEGER,
		ip_address        VARCHAR,
		user_agent        VARCHAR,
		referer           VARCHAR,
		session_id        VARCHAR,
		source_format     VARCHAR,
		is_bot            BOOLEAN,
		bot_type          VARCHAR,
		device_type       VARCHAR,
		browser           VARCHAR,
		os                VARCHAR,
		country_code      VARCHAR,
		threat_count      USMALLINT
	)`,
	`CREATE TABLE IF NOT EXISTS security_events (
		event_id        VARCHAR PRIMARY KEY,
		timestamp       TIMESTAMP NOT NULL,
		threat_type     VARCHAR NOT NULL,
		severity        VARCHAR NOT NULL,
		ip_address      VARCHAR,
		path            VARCHAR,
		description     VARCHAR,
		pattern_matched VARCHAR,
		confidence      DOUBLE,
		blocked         BOOLEAN DEFAULT false,
		notified        BOOLEAN DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS fact_sessions (
		session_id           VARCHAR PRIMARY KEY,
		start_time           TIMESTAMP NOT NULL,
		end_time             TIMESTAMP NOT NULL,
		duration_seconds     BIGINT,
		page_views           INTEGER,
		unique_pages         INTEGER,
		total_bytes          UBIGINT,
		avg_response_time_ms DOUBLE,
		entry_page           VARCHAR,
		exit_page            VARCHAR,
		is_bounce            BOOLEAN,
		converted            BOOLEAN,
		ip_address           VARCHAR,
		user_agent           VARCHAR,
		is_bot               BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		anomaly_id      VARCHAR PRIMARY KEY,
		detected_at     TIMESTAMP NOT NULL,
		anomaly_type    VARCHAR NOT NULL,
		severity        VARCHAR NOT NULL,
		metric_name     VARCHAR,
		expected_value  DOUBLE,
		actual_value    DOUBLE,
		deviation_score DOUBLE,
		description     VARCHAR,
		context         VARCHAR,
		investigated    BOOLEAN DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON fact_requests(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_date ON fact_requests(date)`,
	`CREATE INDEX IF NOT EXISTS idx_security_timestamp ON security_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_start ON fact_sessions(start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_detected ON anomalies(detected_at)`,
}

// Tables lists the tables created by the schema.
var Tables = []string{"fact_requests", "security_events", "fact_sessions", "anomalies"}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
