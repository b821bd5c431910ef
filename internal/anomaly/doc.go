// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

// Package anomaly flags statistical deviations in metric time series.
//
// Every detector is a pure function over a time-ordered series; none holds
// state between calls and each can be run on its own:
//
//   - DetectTrafficAnomalies: rolling z-score against the preceding window
//   - DetectLatencyAnomalies: per-endpoint z-score against the lower 95%
//   - DetectErrorRateAnomalies: absolute error-rate thresholds
//   - DetectStatusCodeAnomalies: share of traffic per watched status code
//   - DetectPathSpikes: per-path z-score gated on twice the path mean
//
// Z-scores map to severities at 2 (low), 3 (medium), 4 (high) and 5
// (critical) standard deviations. A baseline with zero variance flags any
// value that differs from it at the maximal deviation score and never flags
// a value equal to it, so a flat series produces no anomalies.
//
// Detectors leave Anomaly.AnomalyID empty; IDs are assigned when anomalies
// are persisted.
package anomaly
