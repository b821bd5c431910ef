// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP query endpoint.
//
// Status is "success" with Data populated, or "error" with Error populated.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": [{"path": "/api/users", "requests": 5120}],
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the structured error body.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid query parameters
//   - DATABASE_ERROR: query execution failure
//   - RATE_LIMIT_EXCEEDED: too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
