// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package eventprocessor

import (
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
)

// NewCircuitBreaker creates a circuit breaker with the given configuration.
// State transitions are logged and exported as loglens_circuit_breaker_state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}

	return gobreaker.NewCircuitBreaker[any](settings)
}

// CircuitBreakerState returns the breaker state as a string for monitoring.
func CircuitBreakerState(cb *gobreaker.CircuitBreaker[any]) string {
	return cb.State().String()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
