// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/logging"
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = errors.New("database is closed")

// defaultTimeout bounds operations whose context carries no deadline.
const defaultTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides the request store and its
// query surface.
type DB struct {
	conn   *sql.DB
	cfg    *config.DatabaseConfig
	closed atomic.Bool
}

// New opens (or creates) the DuckDB database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	// Extensions are never auto-installed; the schema only uses core types.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
	}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Debug().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Str("max_memory", maxMemory).
		Msg("DuckDB store opened")

	return db, nil
}

// configureConnectionPool sizes the database/sql pool.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Close checkpoints the WAL and closes the connection. Further calls on
// the DB return ErrClosed.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if db.cfg.Path != ":memory:" {
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
	}
	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.conn.PingContext(ctx)
}

// Path returns the configured database path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// begin validates the DB state and applies the default timeout when ctx
// has no deadline.
func (db *DB) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if db.closed.Load() {
		return ctx, func() {}, ErrClosed
	}
	ctx, cancel := ensureContext(ctx)
	return ctx, cancel, nil
}

// ensureContext adds a 30 second timeout to contexts without a deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultTimeout)
	}
	return ctx, func() {}
}

// closeQuietly closes a resource in error paths where the Close error is
// not actionable.
func closeQuietly(closer interface{ Close() error }) {
	if closer != nil {
		_ = closer.Close()
	}
}
