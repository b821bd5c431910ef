// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package classifier

import "github.com/tomtom215/loglens/internal/models"

// Stats accumulates bot and human counts for a run. The zero value is
// ready to use. Stats is not safe for concurrent use; each ingestion run
// owns its own.
type Stats struct {
	Bots   int64 `json:"bot_count"`
	Humans int64 `json:"human_count"`
}

// Observe counts one classification.
func (s *Stats) Observe(c models.ClientClassification) {
	if c.IsBot {
		s.Bots++
	} else {
		s.Humans++
	}
}

// Total returns the number of observed classifications.
func (s Stats) Total() int64 {
	return s.Bots + s.Humans
}

// BotPercentage returns the share of bots, rounded to two decimals.
func (s Stats) BotPercentage() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	pct := float64(s.Bots) / float64(total) * 100
	return float64(int64(pct*100+0.5)) / 100
}

// Merge folds other into s.
func (s *Stats) Merge(other Stats) {
	s.Bots += other.Bots
	s.Humans += other.Humans
}
