// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package parser

import (
	"math"
	"regexp"
	"strconv"

	"github.com/tomtom215/loglens/internal/models"
)

// nginxPattern matches the nginx "combined" format with an optional quoted
// X-Forwarded-For field and an optional request time in seconds.
var nginxPattern = regexp.MustCompile(
	`^(?P<ip>[\da-fA-F.:]+) - (?P<remote_user>\S+) \[(?P<time>[^\]]+)\] ` +
		`"(?P<method>\S+) (?P<path>\S+) (?P<protocol>[^"]+)" ` +
		`(?P<status>\d{3}) (?P<size>\d+|-) ` +
		`"(?P<referer>[^"]*)" "(?P<user_agent>[^"]*)"` +
		`(?: "(?P<forwarded_for>[^"]*)")?` +
		`(?: (?P<response_time>[\d.]+))?`)

// apachePattern matches the Apache "combined" format. The request line is
// captured as one token and split afterwards.
var apachePattern = regexp.MustCompile(
	`^(?P<ip>[\da-fA-F.:]+) (?P<ident>\S+) (?P<user>\S+) \[(?P<time>[^\]]+)\] ` +
		`"(?P<request>[^"]+)" (?P<status>\d{3}) (?P<size>\d+|-) ` +
		`"(?P<referer>[^"]*)" "(?P<user_agent>[^"]*)"`)

var (
	nginxGroups  = groupIndex(nginxPattern)
	apacheGroups = groupIndex(apachePattern)
)

// groupIndex maps named capture groups to submatch indexes.
func groupIndex(re *regexp.Regexp) map[string]int {
	idx := make(map[string]int)
	for i, name := range re.SubexpNames() {
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}

func (p *Parser) parseNginx(line string) (models.ParsedRequest, error) {
	m := nginxPattern.FindStringSubmatch(line)
	if m == nil {
		return models.ParsedRequest{}, ErrParseMismatch
	}
	g := func(name string) string { return m[nginxGroups[name]] }

	status, err := parseStatus(g("status"))
	if err != nil {
		return models.ParsedRequest{}, err
	}
	size, err := parseSize(g("size"))
	if err != nil {
		return models.ParsedRequest{}, err
	}

	method, path, query, version := splitRequestLine(g("method") + " " + g("path") + " " + g("protocol"))

	req := models.ParsedRequest{
		Timestamp:     p.parseTimestamp(g("time"), models.FormatNginx),
		Method:        method,
		Path:          path,
		QueryString:   query,
		HTTPVersion:   version,
		StatusCode:    status,
		ResponseBytes: size,
		IPAddress:     g("ip"),
		UserAgent:     g("user_agent"),
		Referer:       g("referer"),
	}
	if rt := g("response_time"); rt != "" {
		req.ResponseTimeMS = secondsToMillis(rt)
	}
	return req, nil
}

func (p *Parser) parseApache(line string) (models.ParsedRequest, error) {
	m := apachePattern.FindStringSubmatch(line)
	if m == nil {
		return models.ParsedRequest{}, ErrParseMismatch
	}
	g := func(name string) string { return m[apacheGroups[name]] }

	status, err := parseStatus(g("status"))
	if err != nil {
		return models.ParsedRequest{}, err
	}
	size, err := parseSize(g("size"))
	if err != nil {
		return models.ParsedRequest{}, err
	}

	method, path, query, version := splitRequestLine(g("request"))

	return models.ParsedRequest{
		Timestamp:     p.parseTimestamp(g("time"), models.FormatApache),
		Method:        method,
		Path:          path,
		QueryString:   query,
		HTTPVersion:   version,
		StatusCode:    status,
		ResponseBytes: size,
		IPAddress:     g("ip"),
		UserAgent:     g("user_agent"),
		Referer:       g("referer"),
	}, nil
}

// secondsToMillis converts a request time in fractional seconds to whole
// milliseconds, truncating. Unparseable or out of range values yield nil.
func secondsToMillis(s string) *uint32 {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return nil
	}
	ms := math.Trunc(secs * 1000)
	if ms > math.MaxUint32 {
		return nil
	}
	return models.Uint32Ptr(uint32(ms))
}
