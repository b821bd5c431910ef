// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"loglens.yaml",
	"config.yaml",
	"/etc/loglens/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		Ingest: IngestConfig{
			Format:             "nginx",
			BatchSize:          10000,
			RateLimitWindow:    60 * time.Second,
			RateLimitThreshold: 0,
			RateLimitMaxIPs:    100000,
			StoreTimeout:       30 * time.Second,
			ParallelFiles:      1,
		},
		Database: DatabaseConfig{
			Path:                   "/data/loglens.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
			RequestTTLDays:         90,
			SecurityTTLDays:        365,
		},
		Sessionizer: SessionizerConfig{
			GroupBy:          "session_id",
			Timeout:          30 * time.Minute,
			MinPathFrequency: 2,
		},
		Anomaly: AnomalyConfig{
			WindowSize:         24,
			MinPathRequests:    10,
			WatchedStatusCodes: []int{500, 502, 503, 504},
			Bucket:             time.Hour,
			Lookback:           7 * 24 * time.Hour,
			TopPaths:           50,
		},
		Analysis: AnalysisConfig{
			Enabled:       true,
			Schedule:      "0 * * * *",
			PurgeSchedule: "30 3 * * *",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8428,
			Timeout:           30 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			Subject:             "loglens.security",
			StreamName:          "LOGLENS_SECURITY",
			MaxMemory:           256 << 20,
			MaxStore:            1 << 30,
			StreamRetentionDays: 7,
			BreakerMaxFailures:  5,
			BreakerTimeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file: path when non-empty, otherwise the first of
//     CONFIG_PATH and DefaultConfigPaths that exists
//  3. Environment variables (highest priority)
//
// The result is validated before it is returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// LOG_LEVEL -> logging.level, DUCKDB_PATH -> database.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"ingest.known_bad_ips",
	"anomaly.watched_status_codes",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while YAML files already yield slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		trimmed := splitList(strVal)
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak into
// the configuration.
var envMappings = map[string]string{
	// Ingest mappings
	"ingest_format":               "ingest.format",
	"ingest_batch_size":           "ingest.batch_size",
	"disable_bot_detection":       "ingest.disable_bot_detection",
	"disable_security_scan":       "ingest.disable_security_scan",
	"known_bad_ips":               "ingest.known_bad_ips",
	"ingest_rate_limit_window":    "ingest.rate_limit_window",
	"ingest_rate_limit_threshold": "ingest.rate_limit_threshold",
	"ingest_rate_limit_max_ips":   "ingest.rate_limit_max_ips",
	"store_timeout":               "ingest.store_timeout",
	"parallel_files":              "ingest.parallel_files",
	"checkpoint_path":             "ingest.checkpoint_path",
	"s3_region":                   "ingest.s3_region",
	"s3_endpoint":                 "ingest.s3_endpoint",

	// Database mappings
	"duckdb_path":           "database.path",
	"duckdb_max_memory":     "database.max_memory",
	"duckdb_threads":        "database.threads",
	"duckdb_preserve_order": "database.preserve_insertion_order",
	"request_ttl_days":      "database.request_ttl_days",
	"security_ttl_days":     "database.security_ttl_days",

	// Sessionizer mappings
	"session_group_by":           "sessionizer.group_by",
	"session_timeout":            "sessionizer.timeout",
	"session_min_path_frequency": "sessionizer.min_path_frequency",

	// Anomaly mappings
	"anomaly_window_size":          "anomaly.window_size",
	"anomaly_min_path_requests":    "anomaly.min_path_requests",
	"anomaly_watched_status_codes": "anomaly.watched_status_codes",
	"anomaly_bucket":               "anomaly.bucket",
	"anomaly_lookback":             "anomaly.lookback",
	"anomaly_top_paths":            "anomaly.top_paths",

	// Analysis mappings
	"analysis_enabled":  "analysis.enabled",
	"analysis_schedule": "analysis.schedule",
	"purge_schedule":    "analysis.purge_schedule",

	// Server mappings
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"cors_origins":        "server.cors_origins",

	// NATS mappings
	"nats_enabled":              "nats.enabled",
	"nats_url":                  "nats.url",
	"nats_embedded":             "nats.embedded_server",
	"nats_store_dir":            "nats.store_dir",
	"nats_subject":              "nats.subject",
	"nats_stream_name":          "nats.stream_name",
	"nats_max_memory":           "nats.max_memory",
	"nats_max_store":            "nats.max_store",
	"nats_retention_days":       "nats.stream_retention_days",
	"nats_breaker_max_failures": "nats.breaker_max_failures",
	"nats_breaker_timeout":      "nats.breaker_timeout",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config
// paths. Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
