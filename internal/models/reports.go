// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import "time"

// TopPath is a path ranked by request volume.
type TopPath struct {
	Path              string  `json:"path"`
	Requests          int64   `json:"requests"`
	UniqueVisitors    int64   `json:"unique_visitors"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	ErrorCount        int64   `json:"error_count"`
}

// EndpointLatency holds latency percentiles and error rate for one path.
type EndpointLatency struct {
	Path         string  `json:"path"`
	Requests     int64   `json:"requests"`
	P50MS        float64 `json:"p50_ms"`
	P95MS        float64 `json:"p95_ms"`
	P99MS        float64 `json:"p99_ms"`
	ErrorRatePct float64 `json:"error_rate_pct"`
}

// BotTrafficStat is the request count attributed to one bot type.
type BotTrafficStat struct {
	BotType  string `json:"bot_type"`
	Requests int64  `json:"requests"`
}

// BotTrafficReport is the bot share of traffic over a period.
type BotTrafficReport struct {
	TotalRequests int64            `json:"total_requests"`
	BotRequests   int64            `json:"bot_requests"`
	BotRatio      float64          `json:"bot_ratio"`
	ByType        []BotTrafficStat `json:"by_type"`
}

// TopIP is a client address ranked by request volume.
type TopIP struct {
	IPAddress         string  `json:"ip_address"`
	Requests          int64   `json:"requests"`
	UniquePages       int64   `json:"unique_pages"`
	Errors            int64   `json:"errors"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	IsBot             bool    `json:"is_bot"`
}

// HourlyTraffic is request volume and latency for one hour bucket.
type HourlyTraffic struct {
	Hour              time.Time `json:"hour"`
	Requests          int64     `json:"requests"`
	UniqueIPs         int64     `json:"unique_ips"`
	AvgResponseTimeMS float64   `json:"avg_response_time_ms"`
	Errors            int64     `json:"errors"`
	Bytes             uint64    `json:"bytes"`
}

// DailySummary rolls a day of traffic into headline figures.
type DailySummary struct {
	Date          time.Time `json:"date"`
	Requests      int64     `json:"requests"`
	UniqueIPs     int64     `json:"unique_ips"`
	BotRequests   int64     `json:"bot_requests"`
	ErrorRequests int64     `json:"error_requests"`
	P50MS         float64   `json:"p50_ms"`
	P95MS         float64   `json:"p95_ms"`
	P99MS         float64   `json:"p99_ms"`
	TotalBytes    uint64    `json:"total_bytes"`
}
