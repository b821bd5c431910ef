// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/loglens/internal/models"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks every configuration section.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateIngest,
		c.validateDatabase,
		c.validateSessionizer,
		c.validateAnomaly,
		c.validateAnalysis,
		c.validateServer,
		c.validateNATS,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// validateIngest validates ingestion pipeline settings
func (c *Config) validateIngest() error {
	if _, err := models.ParseFormat(c.Ingest.Format); err != nil {
		return invalid("INGEST_FORMAT must be one of: nginx, apache, cloudflare")
	}
	if c.Ingest.BatchSize < 1 {
		return invalid("INGEST_BATCH_SIZE must be positive")
	}
	if c.Ingest.RateLimitThreshold < 0 {
		return invalid("INGEST_RATE_LIMIT_THRESHOLD must not be negative")
	}
	if c.Ingest.RateLimitThreshold > 0 {
		if c.Ingest.RateLimitWindow < time.Second {
			return invalid("INGEST_RATE_LIMIT_WINDOW must be at least 1s")
		}
		if c.Ingest.RateLimitMaxIPs < 1 {
			return invalid("INGEST_RATE_LIMIT_MAX_IPS must be positive")
		}
	}
	if c.Ingest.StoreTimeout <= 0 {
		return invalid("STORE_TIMEOUT must be positive")
	}
	if c.Ingest.ParallelFiles < 1 {
		return invalid("PARALLEL_FILES must be at least 1")
	}
	for _, ip := range c.Ingest.KnownBadIPs {
		if net.ParseIP(ip) == nil {
			return invalid("KNOWN_BAD_IPS contains an invalid address: %q", ip)
		}
	}
	if c.Ingest.S3Endpoint != "" {
		if err := validateS3Endpoint(c.Ingest.S3Endpoint); err != nil {
			return invalid("S3_ENDPOINT is invalid: %v", err)
		}
	}
	return nil
}

// validateDatabase validates DuckDB settings
func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return invalid("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return invalid("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// validGroupStrategies mirrors the sessionizer grouping strategies
var validGroupStrategies = map[string]bool{
	"":              true,
	"session_id":    true,
	"ip":            true,
	"ip_user_agent": true,
}

// validateSessionizer validates session reconstruction settings
func (c *Config) validateSessionizer() error {
	if !validGroupStrategies[c.Sessionizer.GroupBy] {
		return invalid("SESSION_GROUP_BY must be one of: session_id, ip, ip_user_agent")
	}
	if c.Sessionizer.Timeout <= 0 {
		return invalid("SESSION_TIMEOUT must be positive")
	}
	if c.Sessionizer.MinPathFrequency < 1 {
		return invalid("SESSION_MIN_PATH_FREQUENCY must be at least 1")
	}
	return nil
}

// validateAnomaly validates anomaly detector settings
func (c *Config) validateAnomaly() error {
	if c.Anomaly.WindowSize < 1 {
		return invalid("ANOMALY_WINDOW_SIZE must be at least 1")
	}
	if c.Anomaly.MinPathRequests < 1 {
		return invalid("ANOMALY_MIN_PATH_REQUESTS must be at least 1")
	}
	if c.Anomaly.Bucket < time.Minute {
		return invalid("ANOMALY_BUCKET must be at least 1m")
	}
	if c.Anomaly.Lookback < c.Anomaly.Bucket {
		return invalid("ANOMALY_LOOKBACK must cover at least one bucket")
	}
	if c.Anomaly.TopPaths < 1 {
		return invalid("ANOMALY_TOP_PATHS must be at least 1")
	}
	for _, code := range c.Anomaly.WatchedStatusCodes {
		if code < 100 || code > 599 {
			return invalid("ANOMALY_WATCHED_STATUS_CODES contains an invalid status code: %d", code)
		}
	}
	return nil
}

// validateAnalysis validates cron expressions for scheduled jobs
func (c *Config) validateAnalysis() error {
	if !c.Analysis.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Analysis.Schedule); err != nil {
		return invalid("ANALYSIS_SCHEDULE is not a valid cron expression: %v", err)
	}
	if c.Analysis.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(c.Analysis.PurgeSchedule); err != nil {
			return invalid("PURGE_SCHEDULE is not a valid cron expression: %v", err)
		}
	}
	return nil
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return invalid("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return invalid("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow < time.Second {
		return invalid("RATE_LIMIT_WINDOW must be at least 1s")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return invalid("NATS_URL is invalid: %v", err)
	}
	if strings.TrimSpace(c.NATS.Subject) == "" {
		return invalid("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return invalid("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.StreamRetentionDays < 1 || c.NATS.StreamRetentionDays > 365 {
		return invalid("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.NATS.BreakerMaxFailures < 1 {
		return invalid("NATS_BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return invalid("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return invalid("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
