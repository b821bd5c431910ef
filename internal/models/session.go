// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import "time"

// Session is the derived aggregate of one client's continuous activity.
// StartTime <= EndTime and UniquePages <= PageViews always hold.
type Session struct {
	SessionID         string    `json:"session_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DurationSeconds   int64     `json:"duration_seconds"`
	PageViews         int       `json:"page_views"`
	UniquePages       int       `json:"unique_pages"`
	TotalBytes        uint64    `json:"total_bytes"`
	AvgResponseTimeMS float64   `json:"avg_response_time_ms"`
	EntryPage         string    `json:"entry_page"`
	ExitPage          string    `json:"exit_page"`
	IsBounce          bool      `json:"is_bounce"`
	Converted         bool      `json:"converted"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	IsBot             bool      `json:"is_bot"`
}

// PageTime is the dwell time on one page before the next request.
type PageTime struct {
	Page    string  `json:"page"`
	Seconds float64 `json:"seconds"`
}

// FunnelProgress records which conversion funnel stages a journey reached.
type FunnelProgress struct {
	Stages         map[string]bool `json:"stages"`
	FurthestStage  string          `json:"furthest_stage"`
	CompletionRate float64         `json:"completion_rate"`
}

// Journey is the ordered walk of a single session through the site.
type Journey struct {
	SessionID    string         `json:"session_id"`
	PathSequence []string       `json:"path_sequence"`
	TimeOnPage   []PageTime     `json:"time_on_page"`
	TotalPages   int            `json:"total_pages"`
	UniquePages  int            `json:"unique_pages"`
	Errors       int            `json:"errors"`
	ErrorPaths   []string       `json:"error_paths"`
	Funnel       FunnelProgress `json:"funnel_progress"`
	Converted    bool           `json:"converted"`
}

// PathPattern is an entry/exit page pair and how often sessions followed it.
type PathPattern struct {
	Pattern      string `json:"path"`
	Frequency    int    `json:"frequency"`
	IsConversion bool   `json:"is_conversion"`
}

// SessionMetrics aggregates a set of sessions for reporting.
type SessionMetrics struct {
	TotalSessions      int     `json:"total_sessions"`
	BotSessions        int     `json:"bot_sessions"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	AvgPageViews       float64 `json:"avg_page_views"`
	BounceRate         float64 `json:"bounce_rate"`
	ConversionRate     float64 `json:"conversion_rate"`
}
