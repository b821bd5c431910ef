// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package classifier labels each request's client as bot or human and
// extracts coarse device, browser and operating system information from
// the User-Agent header.
//
// Known crawlers are matched against an ordered table of lowercase
// substrings; the first match wins, so specific signatures such as
// "googlebot" take precedence over the generic "bot" catch-all. Agents
// that match nothing are handed to a UAParser (mssola/useragent by
// default), and when none is configured a minimal substring guesser
// fills in the device, browser and OS.
//
// Usage:
//
//	c := classifier.New()
//	var stats classifier.Stats
//	result := c.Classify(req.UserAgent, req.IPAddress)
//	stats.Observe(result)
package classifier
