// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// isolateEnv clears every mapped variable so the host environment cannot
// leak into Load.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	for name := range envMappings {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loglens.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"INGEST_FORMAT", "ingest.format"},
		{"KNOWN_BAD_IPS", "ingest.known_bad_ips"},
		{"INGEST_RATE_LIMIT_THRESHOLD", "ingest.rate_limit_threshold"},
		{"DUCKDB_PATH", "database.path"},
		{"SESSION_GROUP_BY", "sessionizer.group_by"},
		{"ANOMALY_WATCHED_STATUS_CODES", "anomaly.watched_status_codes"},
		{"HTTP_PORT", "server.port"},
		{"RATE_LIMIT_REQUESTS", "server.rate_limit_requests"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"LOG_LEVEL", "logging.level"},
		{"log_format", "logging.format"},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Defaults()
	if cfg.Ingest.Format != want.Ingest.Format || cfg.Ingest.BatchSize != want.Ingest.BatchSize {
		t.Errorf("Ingest = %+v, want %+v", cfg.Ingest, want.Ingest)
	}
	if cfg.Ingest.StoreTimeout != 30*time.Second {
		t.Errorf("Ingest.StoreTimeout = %v, want 30s", cfg.Ingest.StoreTimeout)
	}
	if cfg.Database != want.Database {
		t.Errorf("Database = %+v, want %+v", cfg.Database, want.Database)
	}
	if cfg.Sessionizer != want.Sessionizer {
		t.Errorf("Sessionizer = %+v, want %+v", cfg.Sessionizer, want.Sessionizer)
	}
	if !reflect.DeepEqual(cfg.Anomaly.WatchedStatusCodes, []int{500, 502, 503, 504}) {
		t.Errorf("Anomaly.WatchedStatusCodes = %v", cfg.Anomaly.WatchedStatusCodes)
	}
	if cfg.Analysis != want.Analysis {
		t.Errorf("Analysis = %+v, want %+v", cfg.Analysis, want.Analysis)
	}
	if cfg.NATS != want.NATS {
		t.Errorf("NATS = %+v, want %+v", cfg.NATS, want.NATS)
	}
	if cfg.Logging != want.Logging {
		t.Errorf("Logging = %+v, want %+v", cfg.Logging, want.Logging)
	}
}

func TestLoad_File(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, `
ingest:
  format: apache
  batch_size: 500
  known_bad_ips:
    - 203.0.113.7
    - 198.51.100.1
sessionizer:
  group_by: ip
  timeout: 45m
anomaly:
  bucket: 15m
  watched_status_codes: [500, 503]
server:
  port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.Format != "apache" {
		t.Errorf("Ingest.Format = %q, want apache", cfg.Ingest.Format)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("Ingest.BatchSize = %d, want 500", cfg.Ingest.BatchSize)
	}
	if !reflect.DeepEqual(cfg.Ingest.KnownBadIPs, []string{"203.0.113.7", "198.51.100.1"}) {
		t.Errorf("Ingest.KnownBadIPs = %v", cfg.Ingest.KnownBadIPs)
	}
	if cfg.Sessionizer.GroupBy != "ip" || cfg.Sessionizer.Timeout != 45*time.Minute {
		t.Errorf("Sessionizer = %+v, want ip/45m", cfg.Sessionizer)
	}
	if cfg.Anomaly.Bucket != 15*time.Minute {
		t.Errorf("Anomaly.Bucket = %v, want 15m", cfg.Anomaly.Bucket)
	}
	if !reflect.DeepEqual(cfg.Anomaly.WatchedStatusCodes, []int{500, 503}) {
		t.Errorf("Anomaly.WatchedStatusCodes = %v, want [500 503]", cfg.Anomaly.WatchedStatusCodes)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.RequestTTLDays != 90 {
		t.Errorf("Database.RequestTTLDays = %d, want 90", cfg.Database.RequestTTLDays)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, "ingest:\n  batch_size: 500\nserver:\n  port: 9000\n")

	t.Setenv("INGEST_BATCH_SIZE", "250")
	t.Setenv("KNOWN_BAD_IPS", "10.0.0.1, 10.0.0.2,,")
	t.Setenv("ANOMALY_WATCHED_STATUS_CODES", "502,504")
	t.Setenv("SESSION_TIMEOUT", "10m")
	t.Setenv("DISABLE_BOT_DETECTION", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.BatchSize != 250 {
		t.Errorf("Ingest.BatchSize = %d, want 250", cfg.Ingest.BatchSize)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000 from file", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Ingest.KnownBadIPs, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("Ingest.KnownBadIPs = %v", cfg.Ingest.KnownBadIPs)
	}
	if !reflect.DeepEqual(cfg.Anomaly.WatchedStatusCodes, []int{502, 504}) {
		t.Errorf("Anomaly.WatchedStatusCodes = %v, want [502 504]", cfg.Anomaly.WatchedStatusCodes)
	}
	if cfg.Sessionizer.Timeout != 10*time.Minute {
		t.Errorf("Sessionizer.Timeout = %v, want 10m", cfg.Sessionizer.Timeout)
	}
	if !cfg.Ingest.DisableBotDetection {
		t.Error("Ingest.DisableBotDetection = false, want true")
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	isolateEnv(t)
	path := writeConfigFile(t, "logging:\n  level: debug\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SESSION_GROUP_BY", "cookie")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolateEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() error = nil, want file error")
	}
}
