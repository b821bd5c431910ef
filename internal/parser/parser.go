// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// ErrParseMismatch is returned when a line does not match the grammar of the
// requested format.
var ErrParseMismatch = errors.New("line does not match log format")

// ErrUnknownFormat is returned when the requested format is not supported.
var ErrUnknownFormat = errors.New("unknown log format")

// maxRawLine bounds the raw line kept on each request for diagnostics.
const maxRawLine = 500

// Sink receives parser warnings that do not fail a line.
type Sink interface {
	// TimestampFallback is called when no timestamp layout matched and the
	// request was stamped with the current time instead.
	TimestampFallback(format models.Format, raw string)
}

// metricsSink reports fallbacks to Prometheus only.
type metricsSink struct{}

func (metricsSink) TimestampFallback(format models.Format, _ string) {
	metrics.TimestampFallbacks.WithLabelValues(string(format)).Inc()
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the wall clock used for timestamp fallbacks.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithSink routes parser warnings to s.
func WithSink(s Sink) Option {
	return func(p *Parser) {
		if s != nil {
			p.sink = s
		}
	}
}

// Parser parses log lines. It holds no per-line state and is safe for
// concurrent use provided its Sink is.
type Parser struct {
	now  func() time.Time
	sink Sink
}

// New creates a Parser. Without options it uses time.Now and reports
// timestamp fallbacks to Prometheus.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:  time.Now,
		sink: metricsSink{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse parses one line with the default parser.
func Parse(line string, format models.Format) (models.ParsedRequest, error) {
	return defaultParser.Parse(line, format)
}

// ParseBatch parses lines with the default parser, dropping failures.
func ParseBatch(lines []string, format models.Format) []models.ParsedRequest {
	return defaultParser.ParseBatch(lines, format)
}

// Parse turns one raw line into a ParsedRequest.
func (p *Parser) Parse(line string, format models.Format) (models.ParsedRequest, error) {
	line = strings.TrimRight(line, "\r\n")

	var (
		req models.ParsedRequest
		err error
	)
	switch format {
	case models.FormatNginx:
		req, err = p.parseNginx(line)
	case models.FormatApache:
		req, err = p.parseApache(line)
	case models.FormatCloudflare:
		req, err = p.parseCloudflare(line)
	default:
		return models.ParsedRequest{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return models.ParsedRequest{}, err
	}

	req.SourceFormat = format
	req.SessionID = SessionID(req.IPAddress, req.UserAgent)
	req.RawLine = truncate(line, maxRawLine)
	return req, nil
}

// ParseBatch parses every non-blank line and returns only the successes.
// Callers that need failure counts should call Parse in a loop.
func (p *Parser) ParseBatch(lines []string, format models.Format) []models.ParsedRequest {
	out := make([]models.ParsedRequest, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := p.Parse(line, format)
		if err != nil {
			continue
		}
		out = append(out, req)
	}
	return out
}

// SessionID derives the pseudo session key for a client: the xxh3 hash of
// ip + "\x00" + userAgent rendered as 16 hex characters. It is empty when
// either input is empty.
func SessionID(ip, userAgent string) string {
	if ip == "" || userAgent == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.HashString(ip+"\x00"+userAgent))
}

// timestampLayouts are tried in order for text timestamps.
var timestampLayouts = []string{
	"02/Jan/2006:15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp tries every known layout and falls back to the current time.
func (p *Parser) parseTimestamp(raw string, format models.Format) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	p.sink.TimestampFallback(format, raw)
	return p.now().UTC()
}

// splitRequestLine splits "METHOD URI PROTOCOL" into its parts.
// Lines with fewer than two tokens are treated as "GET / HTTP/1.1".
func splitRequestLine(request string) (method, path, query, version string) {
	parts := strings.Fields(request)
	if len(parts) < 2 {
		return "GET", "/", "", "HTTP/1.1"
	}
	method = parts[0]
	version = "HTTP/1.1"
	if len(parts) > 2 {
		version = parts[2]
	}
	path, query = splitURI(parts[1])
	return method, path, query, version
}

// splitURI separates the path from the query string at the first '?'.
func splitURI(uri string) (path, query string) {
	path, query, _ = strings.Cut(uri, "?")
	return path, query
}

// parseStatus parses a status code and enforces the [100,599] range.
func parseStatus(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n < 100 || n > 599 {
		return 0, fmt.Errorf("%w: status code %q", ErrParseMismatch, s)
	}
	return uint16(n), nil
}

// parseSize parses a byte count; "-" means no body.
func parseSize(s string) (uint64, error) {
	if s == "-" || s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: response size %q", ErrParseMismatch, s)
	}
	return n, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
