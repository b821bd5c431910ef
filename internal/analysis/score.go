// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package analysis

import (
	"math"

	"github.com/tomtom215/loglens/internal/models"
)

// coefficientOfVariation returns the population standard deviation of
// metric across series as a percentage of its mean, or 0 when the mean
// is zero.
func coefficientOfVariation(series []models.MetricPoint, metric string) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, p := range series {
		sum += p.Value(metric)
	}
	mean := sum / float64(len(series))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, p := range series {
		d := p.Value(metric) - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(series))) / mean * 100
}

// errorRate returns the share of requests in windows that failed, in
// percent.
func errorRate(windows []models.ErrorWindow) float64 {
	var total, errs int64
	for _, w := range windows {
		total += w.TotalRequests
		errs += w.ErrorCount
	}
	if total == 0 {
		return 0
	}
	return float64(errs) / float64(total) * 100
}
