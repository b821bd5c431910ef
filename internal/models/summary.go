// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package models

import "time"

// RunSummary is the end-of-run report of one ingestion pass.
// It is the only surface where per-line and per-batch failures become visible,
// so every count is exact. A gap between ParsedSuccessfully and InsertedToDB
// means rows were lost to store failures.
type RunSummary struct {
	Source             string        `json:"source"`
	Format             Format        `json:"format"`
	TotalLines         int64         `json:"total_lines"`
	ParsedSuccessfully int64         `json:"parsed_successfully"`
	ParseErrors        int64         `json:"parse_errors"`
	TimestampFallbacks int64         `json:"timestamp_fallbacks"`
	InsertedToDB       int64         `json:"inserted_to_db"`
	FailedBatches      int64         `json:"failed_batches"`
	FailedRows         int64         `json:"failed_rows"`
	BotsDetected       int64         `json:"bots_detected"`
	HumansDetected     int64         `json:"humans_detected"`
	ThreatsDetected    int64         `json:"threats_detected"`
	SecurityEvents     int64         `json:"security_events_stored"`
	SecurityEventsLost int64         `json:"security_events_failed"`
	ProcessingTime     time.Duration `json:"processing_time"`
	LinesPerSecond     float64       `json:"lines_per_second"`
	Canceled           bool          `json:"canceled"`
	Skipped            bool          `json:"skipped,omitempty"`
}

// Add folds the counts of other into s. Timing fields are summed; the
// throughput is recomputed by the caller.
func (s *RunSummary) Add(other RunSummary) {
	s.TotalLines += other.TotalLines
	s.ParsedSuccessfully += other.ParsedSuccessfully
	s.ParseErrors += other.ParseErrors
	s.TimestampFallbacks += other.TimestampFallbacks
	s.InsertedToDB += other.InsertedToDB
	s.FailedBatches += other.FailedBatches
	s.FailedRows += other.FailedRows
	s.BotsDetected += other.BotsDetected
	s.HumansDetected += other.HumansDetected
	s.ThreatsDetected += other.ThreatsDetected
	s.SecurityEvents += other.SecurityEvents
	s.SecurityEventsLost += other.SecurityEventsLost
	s.ProcessingTime += other.ProcessingTime
	s.Canceled = s.Canceled || other.Canceled
}

// Throughput returns lines per second over elapsed, 0 when elapsed is zero.
func Throughput(lines int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(lines) / elapsed.Seconds()
}
