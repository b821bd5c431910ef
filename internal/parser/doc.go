// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

/*
Package parser turns raw access log lines into models.ParsedRequest records.

Three wire formats are supported:

  - nginx: the "combined" format, optionally followed by a quoted
    X-Forwarded-For field and a request time in seconds
  - apache: the "combined" format with the request line as one quoted token
  - cloudflare: one JSON object per line using Logpush field names

A line that does not match the grammar of its format fails with
ErrParseMismatch. Callers count the failure and continue with the next line.

Timestamps are tried against a fixed list of layouts. When none match the
request is still returned, stamped with the wall-clock time of parsing, and the
fallback is reported to the parser's Sink. This keeps the line available for
traffic counts at the cost of possibly misplacing it in time.

# Session Keys

Every request carries a pseudo session key derived from the client IP and user
agent (see SessionID). It is not a real session cookie: clients sharing an IP
and browser build, such as users behind a corporate NAT, collapse into a single
key.
*/
package parser
