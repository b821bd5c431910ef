// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package config

import "time"

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (loglens.yaml, config.yaml, /etc/loglens/config.yaml)
//  3. Environment Variables: Override any mapped setting
//  4. CLI flags: applied by cmd/loglens on the loaded struct
//
// Example:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
type Config struct {
	Ingest      IngestConfig      `koanf:"ingest"`
	Database    DatabaseConfig    `koanf:"database"`
	Sessionizer SessionizerConfig `koanf:"sessionizer"`
	Anomaly     AnomalyConfig     `koanf:"anomaly"`
	Analysis    AnalysisConfig    `koanf:"analysis"`
	Server      ServerConfig      `koanf:"server"`
	NATS        NATSConfig        `koanf:"nats"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Format              string        `koanf:"format"`
	BatchSize           int           `koanf:"batch_size"`
	DisableBotDetection bool          `koanf:"disable_bot_detection"`
	DisableSecurityScan bool          `koanf:"disable_security_scan"`
	KnownBadIPs         []string      `koanf:"known_bad_ips"`
	RateLimitWindow     time.Duration `koanf:"rate_limit_window"`
	RateLimitThreshold  int           `koanf:"rate_limit_threshold"` // 0 disables rate checks
	RateLimitMaxIPs     int           `koanf:"rate_limit_max_ips"`   // bound on tracked IP windows
	StoreTimeout        time.Duration `koanf:"store_timeout"`
	ParallelFiles       int           `koanf:"parallel_files"`
	CheckpointPath      string        `koanf:"checkpoint_path"` // empty disables checkpoints

	// S3Region and S3Endpoint configure s3:// sources. Empty values fall
	// back to the AWS SDK default chain.
	S3Region   string `koanf:"s3_region"`
	S3Endpoint string `koanf:"s3_endpoint"`
}

// DatabaseConfig holds DuckDB settings and the retention policy.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default is true
	RequestTTLDays         int    `koanf:"request_ttl_days"`         // <= 0 keeps requests forever
	SecurityTTLDays        int    `koanf:"security_ttl_days"`        // <= 0 keeps security events forever
}

// SessionizerConfig holds session reconstruction settings.
type SessionizerConfig struct {
	GroupBy          string        `koanf:"group_by"` // session_id, ip, ip_user_agent
	Timeout          time.Duration `koanf:"timeout"`
	MinPathFrequency int           `koanf:"min_path_frequency"`
}

// AnomalyConfig holds anomaly detector settings.
type AnomalyConfig struct {
	WindowSize         int           `koanf:"window_size"`
	MinPathRequests    int           `koanf:"min_path_requests"`
	WatchedStatusCodes []int         `koanf:"watched_status_codes"`
	Bucket             time.Duration `koanf:"bucket"`
	Lookback           time.Duration `koanf:"lookback"`
	TopPaths           int           `koanf:"top_paths"` // paths tracked by latency and path series
}

// AnalysisConfig holds batch analysis scheduling.
type AnalysisConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Schedule      string `koanf:"schedule"`       // standard 5-field cron
	PurgeSchedule string `koanf:"purge_schedule"` // empty disables scheduled retention
}

// ServerConfig holds HTTP query surface settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// NATSConfig holds security event publication settings.
type NATSConfig struct {
	Enabled             bool          `koanf:"enabled"`
	URL                 string        `koanf:"url"`
	EmbeddedServer      bool          `koanf:"embedded_server"`
	StoreDir            string        `koanf:"store_dir"`
	Subject             string        `koanf:"subject"`
	StreamName          string        `koanf:"stream_name"`
	MaxMemory           int64         `koanf:"max_memory"`
	MaxStore            int64         `koanf:"max_store"`
	StreamRetentionDays int           `koanf:"stream_retention_days"`
	BreakerMaxFailures  uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// StatusCodes converts the watched status codes to uint16, dropping values
// outside the HTTP status range.
func (a AnomalyConfig) StatusCodes() []uint16 {
	out := make([]uint16, 0, len(a.WatchedStatusCodes))
	for _, code := range a.WatchedStatusCodes {
		if code >= 100 && code <= 599 {
			out = append(out, uint16(code))
		}
	}
	return out
}
