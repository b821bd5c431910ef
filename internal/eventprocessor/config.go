// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package eventprocessor

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/loglens/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	Subject          string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// StreamConfig defines security event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultServerConfig returns defaults for the embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 1 << 30,   // 1GB
	}
}

// DefaultPublisherConfig returns defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		Subject:          "loglens.security",
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// DefaultStreamConfig returns the security event stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "LOGLENS_SECURITY",
		Subjects:        []string{"loglens.security.>"},
		MaxAge:          30 * 24 * time.Hour,
		MaxBytes:        1 << 30,
		MaxMsgs:         -1, // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// DefaultCircuitBreakerConfig returns breaker defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Settings is the full event bus configuration derived from the
// application config.
type Settings struct {
	Embedded  bool
	Server    ServerConfig
	Publisher PublisherConfig
	Stream    StreamConfig
	Breaker   CircuitBreakerConfig
}

// SettingsFromConfig maps config.NATSConfig onto the component configs.
// Zero values in cfg keep the component defaults.
func SettingsFromConfig(cfg *config.NATSConfig) Settings {
	s := Settings{
		Embedded:  cfg.EmbeddedServer,
		Server:    DefaultServerConfig(),
		Publisher: DefaultPublisherConfig(cfg.URL),
		Stream:    DefaultStreamConfig(),
		Breaker:   DefaultCircuitBreakerConfig("nats-publisher"),
	}

	if cfg.Subject != "" {
		s.Publisher.Subject = cfg.Subject
		s.Stream.Subjects = []string{cfg.Subject + ".>"}
	}
	if cfg.StreamName != "" {
		s.Stream.Name = cfg.StreamName
	}
	if cfg.StreamRetentionDays > 0 {
		s.Stream.MaxAge = time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	}
	if cfg.MaxStore > 0 {
		s.Server.JetStreamMaxStore = cfg.MaxStore
		s.Stream.MaxBytes = cfg.MaxStore
	}
	if cfg.MaxMemory > 0 {
		s.Server.JetStreamMaxMem = cfg.MaxMemory
	}
	if cfg.StoreDir != "" {
		s.Server.StoreDir = cfg.StoreDir
	}
	if cfg.BreakerMaxFailures > 0 {
		s.Breaker.FailureThreshold = cfg.BreakerMaxFailures
	}
	if cfg.BreakerTimeout > 0 {
		s.Breaker.Timeout = cfg.BreakerTimeout
	}

	// The embedded server listens where clients are told to connect.
	if host, port, ok := hostPort(cfg.URL); ok {
		s.Server.Host = host
		s.Server.Port = port
	}
	return s
}

func hostPort(rawURL string) (string, int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return strings.Trim(u.Host, "[]"), 4222, true
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}
