// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package parser

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loglens/internal/models"
)

// cloudflareRecord holds the Logpush fields used by the parser.
type cloudflareRecord struct {
	ClientIP               string          `json:"ClientIP"`
	ClientRequestMethod    string          `json:"ClientRequestMethod"`
	ClientRequestURI       string          `json:"ClientRequestURI"`
	ClientRequestProtocol  string          `json:"ClientRequestProtocol"`
	ClientRequestUserAgent string          `json:"ClientRequestUserAgent"`
	ClientRequestReferer   string          `json:"ClientRequestReferer"`
	EdgeStartTimestamp     json.RawMessage `json:"EdgeStartTimestamp"`
	EdgeResponseStatus     *int            `json:"EdgeResponseStatus"`
	EdgeResponseBytes      uint64          `json:"EdgeResponseBytes"`
}

func (p *Parser) parseCloudflare(line string) (models.ParsedRequest, error) {
	var rec cloudflareRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return models.ParsedRequest{}, fmt.Errorf("%w: %v", ErrParseMismatch, err)
	}
	if len(rec.EdgeStartTimestamp) == 0 || bytes.Equal(rec.EdgeStartTimestamp, []byte("null")) {
		return models.ParsedRequest{}, fmt.Errorf("%w: missing EdgeStartTimestamp", ErrParseMismatch)
	}

	ts, err := p.cloudflareTimestamp(rec.EdgeStartTimestamp)
	if err != nil {
		return models.ParsedRequest{}, err
	}

	status := uint16(200)
	if rec.EdgeResponseStatus != nil {
		if *rec.EdgeResponseStatus < 100 || *rec.EdgeResponseStatus > 599 {
			return models.ParsedRequest{}, fmt.Errorf("%w: status code %d", ErrParseMismatch, *rec.EdgeResponseStatus)
		}
		status = uint16(*rec.EdgeResponseStatus)
	}

	uri := orDefault(rec.ClientRequestURI, "/")
	path, query := splitURI(uri)

	return models.ParsedRequest{
		Timestamp:     ts,
		Method:        orDefault(rec.ClientRequestMethod, "GET"),
		Path:          path,
		QueryString:   query,
		HTTPVersion:   orDefault(rec.ClientRequestProtocol, "HTTP/1.1"),
		StatusCode:    status,
		ResponseBytes: rec.EdgeResponseBytes,
		IPAddress:     rec.ClientIP,
		UserAgent:     rec.ClientRequestUserAgent,
		Referer:       rec.ClientRequestReferer,
	}, nil
}

// cloudflareTimestamp accepts a millisecond epoch number or a text timestamp.
func (p *Parser) cloudflareTimestamp(raw json.RawMessage) (time.Time, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: EdgeStartTimestamp: %v", ErrParseMismatch, err)
		}
		return p.parseTimestamp(s, models.FormatCloudflare), nil
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("%w: EdgeStartTimestamp: %v", ErrParseMismatch, err)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
