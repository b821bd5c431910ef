// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package logging provides the process-wide zerolog logger for Loglens.
//
// Every component logs through the package-level helpers; library packages
// (parser, classifier, scanner, sessionizer, anomaly) do not log per line
// and report counts instead.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("path", path).Msg("Ingest started")
//	logging.Error().Err(err).Int("rows", n).Msg("Batch write failed")
//
// # Context
//
// Ingestion and analysis runs carry a short correlation ID and HTTP
// requests a request ID. Ctx returns a logger with both attached:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Run complete")
//
// # slog
//
// NewSlogLogger adapts the global logger to log/slog for libraries such as
// sutureslog.
//
// Always terminate log chains with .Msg() or .Send().
package logging
