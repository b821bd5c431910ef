// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/loglens/internal/config"
	"github.com/tomtom215/loglens/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO
// connections from many parallel tests can hang under CI resource pressure,
// so each test holds the semaphore until it completes.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database that is closed when the test ends.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:            ":memory:",
		MaxMemory:       "1GB",
		RequestTTLDays:  90,
		SecurityTTLDays: 365,
	})
}

func setupTestDBWithConfig(t *testing.T, cfg *config.DatabaseConfig) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func enriched(ts time.Time, ip, path string, status uint16, rt *uint32) models.EnrichedRequest {
	return models.EnrichedRequest{
		ParsedRequest: models.ParsedRequest{
			Timestamp:      ts,
			Method:         "GET",
			Path:           path,
			HTTPVersion:    "HTTP/1.1",
			StatusCode:     status,
			ResponseBytes:  512,
			ResponseTimeMS: rt,
			IPAddress:      ip,
			UserAgent:      "Mozilla/5.0",
			SessionID:      "s-" + ip,
			SourceFormat:   models.FormatNginx,
		},
		Client: models.ClientClassification{
			DeviceType: models.DeviceDesktop,
			Browser:    "Firefox",
			OS:         "Linux",
		},
	}
}

func bot(r models.EnrichedRequest, botType string) models.EnrichedRequest {
	r.Client = models.ClientClassification{
		IsBot:      true,
		BotType:    botType,
		DeviceType: models.DeviceBot,
		Browser:    botType,
		OS:         "bot",
	}
	return r
}

func mustInsert(t *testing.T, db *DB, batch []models.EnrichedRequest) {
	t.Helper()
	n, err := db.InsertRequests(context.Background(), batch)
	if err != nil {
		t.Fatalf("InsertRequests() error = %v", err)
	}
	if n != len(batch) {
		t.Fatalf("InsertRequests() = %d, want %d", n, len(batch))
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	counts, err := db.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	for _, table := range Tables {
		n, ok := counts[table]
		if !ok {
			t.Errorf("table %s missing from counts", table)
		}
		if n != 0 {
			t.Errorf("count(%s) = %d, want 0", table, n)
		}
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "loglens.duckdb")
	db := setupTestDBWithConfig(t, &config.DatabaseConfig{Path: path, MaxMemory: "512MB"})

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	mustInsert(t, db, []models.EnrichedRequest{enriched(day, "10.0.0.1", "/", 200, nil)})
}

func TestClosedDB(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := db.InsertRequests(ctx, []models.EnrichedRequest{enriched(day, "10.0.0.1", "/", 200, nil)}); !errors.Is(err, ErrClosed) {
		t.Errorf("InsertRequests() after Close error = %v, want ErrClosed", err)
	}
	if _, err := db.TopPaths(ctx, day, 10); !errors.Is(err, ErrClosed) {
		t.Errorf("TopPaths() after Close error = %v, want ErrClosed", err)
	}
	if err := db.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want ErrClosed", err)
	}
}
