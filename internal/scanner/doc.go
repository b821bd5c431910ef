// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package scanner matches HTTP requests against attack signatures and
// produces confidence-scored security threats.
//
// Five signature families are evaluated in a fixed order: SQL injection,
// cross-site scripting, path traversal, command injection and code
// injection. Path traversal signatures look at the path alone, command
// injection signatures at the query string alone, and the rest at
// path + "?" + query. Each match becomes its own threat whose severity is
// derived from the pattern's confidence:
//
//	>= 0.9  critical
//	>= 0.8  high
//	>= 0.7  medium
//	else    low
//
// CheckRateLimit and CheckKnownBadIP are separate checks driven by the
// ingestion pipeline, which owns the per-IP counting they depend on.
//
// The signatures are heuristics. Query strings are scanned as logged, so
// URL-encoded payloads (%27 for a quote) are not decoded before matching.
package scanner
