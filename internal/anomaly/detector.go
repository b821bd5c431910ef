// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/loglens/internal/models"
)

// Z-score thresholds.
const (
	zLow      = 2.0
	zMedium   = 3.0
	zHigh     = 4.0
	zCritical = 5.0

	// maxDeviationScore caps z-scores so they stay finite in storage and
	// JSON; it is also the score given to any change from a flat baseline.
	maxDeviationScore = 1000.0
)

// Error-rate thresholds in percent.
const (
	errorRateLow      = 1.0
	errorRateMedium   = 5.0
	errorRateHigh     = 10.0
	errorRateCritical = 20.0

	// expectedErrorRate is the error percentage considered normal.
	expectedErrorRate = 0.5
)

// Status code share-of-traffic thresholds in percent, plus the raw count
// that is reported even below the lowest share.
const (
	statusShareMedium   = 1.0
	statusShareHigh     = 5.0
	statusShareCritical = 10.0
	statusCountLow      = 10
)

const (
	// latencyMinPoints is the history an endpoint needs before it is judged.
	latencyMinPoints = 10
	// latencyBaselineShare is the lower fraction of observations used as the
	// latency baseline.
	latencyBaselineShare = 0.95

	// pathMinPoints is the history a path needs before it is judged.
	pathMinPoints = 5
	// pathSpikeMultiplier is how far above its mean a path must be.
	pathSpikeMultiplier = 2.0
)

// DefaultWatchedStatusCodes are the server errors watched when none are given.
var DefaultWatchedStatusCodes = []uint16{500, 502, 503, 504}

// severityForZ maps a z-score to a severity, or "" below the lowest threshold.
func severityForZ(z float64) models.Severity {
	switch {
	case z >= zCritical:
		return models.SeverityCritical
	case z >= zHigh:
		return models.SeverityHigh
	case z >= zMedium:
		return models.SeverityMedium
	case z >= zLow:
		return models.SeverityLow
	}
	return ""
}

func severityForErrorRate(rate float64) models.Severity {
	switch {
	case rate >= errorRateCritical:
		return models.SeverityCritical
	case rate >= errorRateHigh:
		return models.SeverityHigh
	case rate >= errorRateMedium:
		return models.SeverityMedium
	case rate >= errorRateLow:
		return models.SeverityLow
	}
	return ""
}

func severityForStatusShare(pct float64, count int64) models.Severity {
	switch {
	case pct >= statusShareCritical:
		return models.SeverityCritical
	case pct >= statusShareHigh:
		return models.SeverityHigh
	case pct >= statusShareMedium:
		return models.SeverityMedium
	case count >= statusCountLow:
		return models.SeverityLow
	}
	return ""
}

// DetectTrafficAnomalies judges each point after the first windowSize
// against the mean and standard deviation of the windowSize points before
// it. Series no longer than the window yield no anomalies.
func DetectTrafficAnomalies(series []models.MetricPoint, metric string, windowSize int) []models.Anomaly {
	if windowSize < 1 || len(series) <= windowSize {
		return nil
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value(metric)
	}

	var anomalies []models.Anomaly
	for i := windowSize; i < len(values); i++ {
		baseline := values[i-windowSize : i]
		m := mean(baseline)
		std := sampleStdDev(baseline, m)
		value := values[i]

		z := zScore(value, m, std)
		severity := severityForZ(z)
		if severity == "" {
			continue
		}

		kind := models.AnomalyTrafficDrop
		if value > m {
			kind = models.AnomalyTrafficSpike
		}

		percentChange := 0.0
		if m > 0 {
			percentChange = round1((value - m) / m * 100)
		}

		anomalies = append(anomalies, models.Anomaly{
			AnomalyType:    kind,
			Severity:       severity,
			Timestamp:      series[i].Timestamp,
			MetricName:     metric,
			ExpectedValue:  round2(m),
			ActualValue:    value,
			DeviationScore: round2(z),
			Description:    fmt.Sprintf("%s is %.1fσ from baseline", metric, z),
			Context: map[string]any{
				"baseline_mean":  round2(m),
				"baseline_std":   round2(std),
				"percent_change": percentChange,
				"window_size":    windowSize,
			},
		})
	}
	return anomalies
}

// DetectLatencyAnomalies groups points by endpoint (MetricPoint.Key) and
// judges each against the mean and deviation of the endpoint's lower 95% of
// values. Only values above the baseline are reported.
func DetectLatencyAnomalies(series []models.MetricPoint, metric string) []models.Anomaly {
	byEndpoint := groupByKey(series)

	var anomalies []models.Anomaly
	for _, endpoint := range sortedKeys(byEndpoint) {
		points := byEndpoint[endpoint]
		if len(points) < latencyMinPoints {
			continue
		}

		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value(metric)
		}
		baseline := sortedCopy(values)[:int(float64(len(values))*latencyBaselineShare)]
		m := mean(baseline)
		std := sampleStdDev(baseline, m)
		if std == 0 {
			continue
		}

		for i, p := range points {
			value := values[i]
			if value <= m {
				continue
			}
			z := zScore(value, m, std)
			severity := severityForZ(z)
			if severity == "" {
				continue
			}

			anomalies = append(anomalies, models.Anomaly{
				AnomalyType:    models.AnomalyLatencySpike,
				Severity:       severity,
				Timestamp:      p.Timestamp,
				MetricName:     endpoint + " latency",
				ExpectedValue:  round2(m),
				ActualValue:    value,
				DeviationScore: round2(z),
				Description:    fmt.Sprintf("%s latency is %.1fσ above normal", endpoint, z),
				Context: map[string]any{
					"endpoint":        endpoint,
					"metric":          metric,
					"baseline_mean":   round2(m),
					"baseline_std":    round2(std),
					"slowdown_factor": round2(value / m),
				},
			})
		}
	}
	sortByTime(anomalies)
	return anomalies
}

// DetectErrorRateAnomalies applies fixed error-rate thresholds to each
// window. Windows without traffic are skipped.
func DetectErrorRateAnomalies(windows []models.ErrorWindow) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, w := range windows {
		if w.TotalRequests <= 0 {
			continue
		}
		rate := float64(w.ErrorCount) / float64(w.TotalRequests) * 100
		severity := severityForErrorRate(rate)
		if severity == "" {
			continue
		}

		breakdown := make(map[string]int64, len(w.ErrorBreakdown))
		for code, n := range w.ErrorBreakdown {
			breakdown[strconv.Itoa(int(code))] = n
		}

		anomalies = append(anomalies, models.Anomaly{
			AnomalyType:    models.AnomalyErrorRate,
			Severity:       severity,
			Timestamp:      w.Timestamp,
			MetricName:     "error_rate",
			ExpectedValue:  expectedErrorRate,
			ActualValue:    round2(rate),
			DeviationScore: round2(rate / expectedErrorRate),
			Description: fmt.Sprintf("Error rate is %.1f%% (%d/%d requests)",
				rate, w.ErrorCount, w.TotalRequests),
			Context: map[string]any{
				"total_requests":  w.TotalRequests,
				"error_count":     w.ErrorCount,
				"error_breakdown": breakdown,
			},
		})
	}
	return anomalies
}

// DetectStatusCodeAnomalies groups events by timestamp and reports each
// watched status code whose share of that bucket's traffic clears a
// threshold. A nil watched list uses DefaultWatchedStatusCodes.
func DetectStatusCodeAnomalies(events []models.StatusEvent, watched []uint16) []models.Anomaly {
	if watched == nil {
		watched = DefaultWatchedStatusCodes
	}

	type bucket struct {
		ts     time.Time
		total  int64
		counts map[uint16]int64
	}
	buckets := make(map[int64]*bucket)
	for _, e := range events {
		key := e.Timestamp.UnixNano()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{ts: e.Timestamp, counts: make(map[uint16]int64)}
			buckets[key] = b
		}
		b.total += e.Count
		b.counts[e.StatusCode] += e.Count
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var anomalies []models.Anomaly
	for _, k := range keys {
		b := buckets[k]
		if b.total <= 0 {
			continue
		}

		all := make(map[string]int64, len(b.counts))
		for code, n := range b.counts {
			all[strconv.Itoa(int(code))] = n
		}

		for _, code := range watched {
			count := b.counts[code]
			if count == 0 {
				continue
			}
			pct := float64(count) / float64(b.total) * 100
			severity := severityForStatusShare(pct, count)
			if severity == "" {
				continue
			}

			anomalies = append(anomalies, models.Anomaly{
				AnomalyType:    models.AnomalyStatusCode,
				Severity:       severity,
				Timestamp:      b.ts,
				MetricName:     fmt.Sprintf("HTTP %d", code),
				ExpectedValue:  0,
				ActualValue:    float64(count),
				DeviationScore: round2(pct),
				Description:    fmt.Sprintf("%d × HTTP %d (%.1f%% of traffic)", count, code, pct),
				Context: map[string]any{
					"status_code":      code,
					"total_requests":   b.total,
					"all_status_codes": all,
				},
			})
		}
	}
	return anomalies
}

// DetectPathSpikes judges each path's request counts (MetricPoint.Key is
// the path) against that path's own mean and deviation. A point is reported
// only when it clears a z-score threshold and is at least twice the mean.
func DetectPathSpikes(series []models.MetricPoint, minRequests int) []models.Anomaly {
	byPath := groupByKey(series)

	var anomalies []models.Anomaly
	for _, path := range sortedKeys(byPath) {
		points := byPath[path]
		if len(points) < pathMinPoints {
			continue
		}

		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value(models.MetricRequestCount)
		}
		m := mean(values)
		std := sampleStdDev(values, m)
		if std == 0 {
			continue
		}

		for i, p := range points {
			count := values[i]
			if count < float64(minRequests) || count < pathSpikeMultiplier*m {
				continue
			}
			z := zScore(count, m, std)
			severity := severityForZ(z)
			if severity == "" {
				continue
			}

			anomalies = append(anomalies, models.Anomaly{
				AnomalyType:    models.AnomalyPathSpike,
				Severity:       severity,
				Timestamp:      p.Timestamp,
				MetricName:     "Traffic to " + path,
				ExpectedValue:  round2(m),
				ActualValue:    count,
				DeviationScore: round2(z),
				Description:    fmt.Sprintf("%s received %d requests (%.1fσ above normal)", path, int64(count), z),
				Context: map[string]any{
					"path":       path,
					"multiplier": round2(count / m),
				},
			})
		}
	}
	sortByTime(anomalies)
	return anomalies
}

// AnomalyScore folds a window's health figures into [0, 1]: traffic
// variance contributes up to 0.3, error rate up to 0.4 and the number of
// latency anomalies up to 0.3.
func AnomalyScore(m models.WindowMetrics) float64 {
	score := math.Min(math.Max(m.TrafficVariance, 0)/100, 0.3) +
		math.Min(math.Max(m.ErrorRate, 0)/10, 0.4) +
		math.Min(float64(m.LatencyAnomalies)/10, 0.3)
	return round2(math.Min(score, 1.0))
}

// groupByKey splits points by Key, ordering each group by time.
func groupByKey(series []models.MetricPoint) map[string][]models.MetricPoint {
	groups := make(map[string][]models.MetricPoint)
	for _, p := range series {
		groups[p.Key] = append(groups[p.Key], p)
	}
	for _, points := range groups {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortByTime(anomalies []models.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Timestamp.Before(anomalies[j].Timestamp)
	})
}
