// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newBufferedSlog(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	previous := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	var buf bytes.Buffer
	return slog.New(NewSlogHandler(zerolog.New(&buf))), &buf
}

func TestSlogHandler_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *slog.Logger)
		level string
	}{
		{"debug", func(l *slog.Logger) { l.Debug("m") }, `"level":"debug"`},
		{"info", func(l *slog.Logger) { l.Info("m") }, `"level":"info"`},
		{"warn", func(l *slog.Logger) { l.Warn("m") }, `"level":"warn"`},
		{"error", func(l *slog.Logger) { l.Error("m") }, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedSlog(t)
			tt.log(logger)
			if !strings.Contains(buf.String(), tt.level) {
				t.Errorf("output = %s, want %s", buf.String(), tt.level)
			}
		})
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	handler := NewSlogHandler(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true for a warn logger")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false for a warn logger")
	}
}

func TestSlogHandler_Attributes(t *testing.T) {
	logger, buf := newBufferedSlog(t)

	logger.With("supervisor", "loglens").Info("service started",
		"service", "api",
		"restarts", 2,
		"backoff", 15*time.Second,
		"healthy", true,
		"err", errors.New("boom"),
	)

	output := buf.String()
	for _, want := range []string{
		`"supervisor":"loglens"`,
		`"service":"api"`,
		`"restarts":2`,
		`"healthy":true`,
		`"err":"boom"`,
		`"message":"service started"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	logger, buf := newBufferedSlog(t)

	logger.WithGroup("event").Info("m", "type", "restart", slog.Group("child", "name", "scheduler"))

	output := buf.String()
	if !strings.Contains(output, `"event.type":"restart"`) {
		t.Errorf("output missing grouped key: %s", output)
	}
	if !strings.Contains(output, `"event.child.name":"scheduler"`) {
		t.Errorf("output missing nested group key: %s", output)
	}
}

func TestSlogHandler_EmptyGroup(t *testing.T) {
	handler := NewSlogHandler(zerolog.New(&bytes.Buffer{}))
	if handler.WithGroup("") != handler {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestSlogHandler_CorrelationID(t *testing.T) {
	logger, buf := newBufferedSlog(t)

	ctx := ContextWithNewCorrelationID(context.Background())
	logger.InfoContext(ctx, "with context")

	if !strings.Contains(buf.String(), `"correlation_id":"`+CorrelationIDFromContext(ctx)+`"`) {
		t.Errorf("output missing correlation_id: %s", buf.String())
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSlogLogger(t *testing.T) {
	buf := captureGlobal(t, "info")

	NewSlogLogger().Info("via slog")

	output := buf.String()
	if !strings.Contains(output, "via slog") {
		t.Errorf("global logger not used: %s", output)
	}
	if !strings.Contains(output, `"component":"supervisor"`) {
		t.Errorf("output missing component: %s", output)
	}
}
