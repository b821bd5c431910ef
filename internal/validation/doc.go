// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package validation provides the process-wide go-playground/validator v10
// instance used to check HTTP query parameters.
//
// Field names in errors are taken from the `query` struct tag, and two
// custom tags are registered:
//
//	severity  low, medium, high or critical
//	bucket    a Go duration between 1m and 24h
//
// Example:
//
//	type securityParams struct {
//	    Limit       int    `query:"limit" validate:"min=1,max=1000"`
//	    MinSeverity string `query:"min_severity" validate:"omitempty,severity"`
//	}
package validation
