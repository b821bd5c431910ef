// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies the wire format of an access log source.
type Format string

const (
	FormatNginx      Format = "nginx"
	FormatApache     Format = "apache"
	FormatCloudflare Format = "cloudflare"
)

// Formats lists every supported source format.
var Formats = []Format{FormatNginx, FormatApache, FormatCloudflare}

// Valid reports whether f is a supported source format.
func (f Format) Valid() bool {
	switch f {
	case FormatNginx, FormatApache, FormatCloudflare:
		return true
	}
	return false
}

// ParseFormat converts a user supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown log format %q (want nginx, apache or cloudflare)", s)
	}
	return f, nil
}

// ParsedRequest is one normalized HTTP access event.
//
// It is created once per log line by the parser and never modified afterwards.
// Path never contains the query string. ResponseTimeMS is nil when the source
// format does not record timing.
type ParsedRequest struct {
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	QueryString    string    `json:"query_string"`
	HTTPVersion    string    `json:"http_version"`
	StatusCode     uint16    `json:"status_code"`
	ResponseBytes  uint64    `json:"response_bytes"`
	ResponseTimeMS *uint32   `json:"response_time_ms,omitempty"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	Referer        string    `json:"referer"`
	SessionID      string    `json:"session_id"`
	SourceFormat   Format    `json:"source_format"`

	// RawLine holds the first 500 bytes of the source line for diagnostics.
	RawLine string `json:"-"`
}

// ResponseTime returns the response time in milliseconds, or 0 when absent.
func (r *ParsedRequest) ResponseTime() uint32 {
	if r.ResponseTimeMS == nil {
		return 0
	}
	return *r.ResponseTimeMS
}

// IsError reports whether the response status is a client or server error.
func (r *ParsedRequest) IsError() bool {
	return r.StatusCode >= 400
}

// EnrichedRequest is a ParsedRequest with its derived classification and
// threat findings attached. It is the unit written to the store.
type EnrichedRequest struct {
	ParsedRequest

	RequestID   string               `json:"request_id"`
	Client      ClientClassification `json:"client"`
	Threats     []SecurityThreat     `json:"threats,omitempty"`
	CountryCode string               `json:"country_code"` // geo enrichment is not performed; always empty
}

// Uint32Ptr returns a pointer to v.
func Uint32Ptr(v uint32) *uint32 {
	return &v
}
