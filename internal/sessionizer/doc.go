// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package sessionizer reconstructs client sessions from a request stream
// and derives journey, funnel and engagement figures from them.
//
// Requests are bucketed by a client identity (the parser's session key,
// the IP address, or the IP and user agent pair), ordered by time, and
// split into separate sessions wherever two consecutive requests are more
// than the inactivity timeout apart. Session IDs are derived from the
// grouping key and the session start, so sessionizing the same input
// twice produces the same sessions.
//
// The parser's session key is a hash of IP and user agent. Clients sharing
// both, such as users behind one NAT with identical browser builds, fall
// into the same bucket and are only separated by inactivity gaps.
//
// All functions are pure and safe for concurrent use.
package sessionizer
