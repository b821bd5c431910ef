// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, encoding and destination of the global logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error or disabled.
	// Unknown or empty levels mean info.
	Level string

	// Format is json (default) or console.
	Format string

	// Caller adds the file:line of the logging call.
	Caller bool

	// Output defaults to os.Stderr so stdout stays free for command output.
	Output io.Writer

	// Command tags every entry with the loglens subcommand that wrote it.
	Command string
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

//nolint:gochecknoinits // packages log before the CLI calls Init
func init() {
	log = build(Config{})
}

// Init replaces the global logger. It may be called again to reconfigure.
func Init(cfg Config) {
	logger := build(cfg)

	mu.Lock()
	defer mu.Unlock()
	log = logger
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	logCtx := zerolog.New(out).With().Timestamp()
	if cfg.Command != "" {
		logCtx = logCtx.Str("cmd", cfg.Command)
	}
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	return logCtx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithComponent returns a child of the global logger tagged with component.
//
//	logger := logging.WithComponent("analysis-scheduler")
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// Debug starts a debug entry on the global logger.
func Debug() *zerolog.Event {
	l := Logger()
	return l.Debug()
}

// Info starts an info entry on the global logger.
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn starts a warning entry on the global logger.
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// Error starts an error entry on the global logger.
func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}
