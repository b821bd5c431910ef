// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// correlationIDKey identifies one ingestion run, file or analysis run.
	correlationIDKey contextKey = "correlation_id"

	// requestIDKey identifies one HTTP request.
	requestIDKey contextKey = "request_id"
)

// GenerateCorrelationID returns the first 8 characters of a random UUID.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// ContextWithNewCorrelationID starts a new correlation scope, replacing any
// ID ctx already carries.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, correlationIDKey, GenerateCorrelationID())
}

// EnsureCorrelationID keeps the correlation ID of ctx, or starts a new one
// when there is none.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return ContextWithNewCorrelationID(ctx)
}

// CorrelationIDFromContext returns the correlation ID of ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ContextWithRequestID attaches an HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID of ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Ctx returns the global logger with the correlation_id and request_id of
// ctx attached.
//
//	logging.Ctx(ctx).Info().Int("rows", n).Msg("Request batch written")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	logger := logCtx.Logger()
	return &logger
}
