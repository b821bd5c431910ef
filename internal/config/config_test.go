// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown format", func(c *Config) { c.Ingest.Format = "iis" }, true},
		{"format is case insensitive", func(c *Config) { c.Ingest.Format = "Apache" }, false},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }, true},
		{"negative rate threshold", func(c *Config) { c.Ingest.RateLimitThreshold = -1 }, true},
		{"rate limit with tiny window", func(c *Config) {
			c.Ingest.RateLimitThreshold = 100
			c.Ingest.RateLimitWindow = 10 * time.Millisecond
		}, true},
		{"rate limit disabled ignores window", func(c *Config) { c.Ingest.RateLimitWindow = 0 }, false},
		{"zero store timeout", func(c *Config) { c.Ingest.StoreTimeout = 0 }, true},
		{"zero parallel files", func(c *Config) { c.Ingest.ParallelFiles = 0 }, true},
		{"bad known ip", func(c *Config) { c.Ingest.KnownBadIPs = []string{"10.0.0.1", "not-an-ip"} }, true},
		{"ipv6 known ip", func(c *Config) { c.Ingest.KnownBadIPs = []string{"2001:db8::1"} }, false},
		{"bad s3 endpoint", func(c *Config) { c.Ingest.S3Endpoint = "ftp://minio:9000" }, true},
		{"empty db path", func(c *Config) { c.Database.Path = " " }, true},
		{"unknown group strategy", func(c *Config) { c.Sessionizer.GroupBy = "cookie" }, true},
		{"ip_user_agent strategy", func(c *Config) { c.Sessionizer.GroupBy = "ip_user_agent" }, false},
		{"zero session timeout", func(c *Config) { c.Sessionizer.Timeout = 0 }, true},
		{"zero window size", func(c *Config) { c.Anomaly.WindowSize = 0 }, true},
		{"bad watched status", func(c *Config) { c.Anomaly.WatchedStatusCodes = []int{500, 700} }, true},
		{"lookback shorter than bucket", func(c *Config) { c.Anomaly.Lookback = 30 * time.Minute }, true},
		{"bad cron", func(c *Config) { c.Analysis.Schedule = "every hour" }, true},
		{"bad cron ignored when disabled", func(c *Config) {
			c.Analysis.Enabled = false
			c.Analysis.Schedule = "every hour"
		}, false},
		{"bad purge cron", func(c *Config) { c.Analysis.PurgeSchedule = "* *" }, true},
		{"no purge schedule", func(c *Config) { c.Analysis.PurgeSchedule = "" }, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"nats bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "http://localhost:4222"
		}, true},
		{"nats enabled defaults", func(c *Config) { c.NATS.Enabled = true }, false},
		{"nats no subject", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.Subject = ""
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAnomalyConfig_StatusCodes(t *testing.T) {
	a := AnomalyConfig{WatchedStatusCodes: []int{500, 42, 503, 1000}}
	got := a.StatusCodes()
	if len(got) != 2 || got[0] != 500 || got[1] != 503 {
		t.Errorf("StatusCodes() = %v, want [500 503]", got)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8428, "0.0.0.0:8428"},
		{"", 9000, ":9000"},
		{"::1", 8428, "[::1]:8428"},
	}
	for _, tt := range tests {
		s := ServerConfig{Host: tt.host, Port: tt.port}
		if got := s.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
