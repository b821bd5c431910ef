// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package ingest

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
)

const (
	// breakerFailures is the number of consecutive failed batch writes that
	// opens the breaker.
	breakerFailures = 5

	// breakerTimeout is how long the breaker stays open before letting a
	// probe batch through.
	breakerTimeout = 30 * time.Second
)

// newStoreBreaker creates the circuit breaker guarding batch writes. While
// open, batches fail immediately with gobreaker.ErrOpenState and are counted
// as failed.
func newStoreBreaker(name string) *gobreaker.CircuitBreaker[int] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
