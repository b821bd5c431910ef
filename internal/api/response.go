// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/models"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
)

// ResponseWriter writes models.APIResponse envelopes and times the request
// from its construction.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(),
	})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, &models.APIError{Code: code, Message: message})
}

// ErrorWithDetails writes apiErr with the given status code.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, apiErr *models.APIError) {
	rw.writeJSON(statusCode, &models.APIResponse{
		Status:   "error",
		Metadata: rw.metadata(),
		Error:    apiErr,
	})
}

// BadRequest writes a 400 Bad Request error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound writes a 404 Not Found error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error.
func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// DatabaseError logs err and writes a 500 without exposing it.
func (rw *ResponseWriter) DatabaseError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Str("path", rw.r.URL.Path).Msg("Database error")
	rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "A database error occurred")
}

func (rw *ResponseWriter) metadata() models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		RequestID:   logging.RequestIDFromContext(rw.r.Context()),
	}
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		rw.w.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.Header().Set("Cache-Control", "no-store")
	rw.w.WriteHeader(statusCode)
	if _, err := rw.w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// WriteError is a convenience function for writing error responses.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	NewResponseWriter(w, r).Error(statusCode, code, message)
}
