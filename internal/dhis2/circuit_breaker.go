// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/dhis2-user-audit/internal/logging"
	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// BreakerName labels the DHIS2 circuit breaker in logs and metrics.
const BreakerName = "dhis2-api"

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("dhis2: circuit breaker open")

// CircuitBreakerClient wraps an API with a circuit breaker.
//
// The breaker trips when at least 10 requests were made in the current
// interval and 60% or more failed. Rejected credentials and missing
// credentials count as successes: they say nothing about DHIS2 health.
type CircuitBreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// BreakerSettings tunes the breaker; zero fields take defaults.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 2 * time.Minute
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
	return s
}

// NewCircuitBreakerClient wraps api with a breaker using default settings.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	return NewCircuitBreakerClientWithSettings(api, BreakerSettings{})
}

// NewCircuitBreakerClientWithSettings wraps api with a breaker using settings.
func NewCircuitBreakerClientWithSettings(api API, settings BreakerSettings) *CircuitBreakerClient {
	settings = settings.withDefaults()
	name := BreakerName

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= settings.FailureRatio
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: name}
}

// State returns the current breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// execute runs fn through the circuit breaker and records metrics.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}

		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).
			Set(float64(cbc.cb.Counts().ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

// castResult converts an execute result back to its concrete type.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping checks DHIS2 through the breaker.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.api.Ping(ctx)
	})
	return err
}

// SystemInfo fetches system info through the breaker.
func (cbc *CircuitBreakerClient) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	return castResult[*SystemInfo](cbc.execute(func() (interface{}, error) {
		return cbc.api.SystemInfo(ctx)
	}))
}

// OrganisationUnits lists organisation units through the breaker.
func (cbc *CircuitBreakerClient) OrganisationUnits(ctx context.Context) ([]OrganisationUnit, error) {
	return castResult[[]OrganisationUnit](cbc.execute(func() (interface{}, error) {
		return cbc.api.OrganisationUnits(ctx)
	}))
}

// Users lists users through the breaker.
func (cbc *CircuitBreakerClient) Users(ctx context.Context) ([]User, error) {
	return castResult[[]User](cbc.execute(func() (interface{}, error) {
		return cbc.api.Users(ctx)
	}))
}

// UserCredentials lists credentials through the breaker.
func (cbc *CircuitBreakerClient) UserCredentials(ctx context.Context) ([]UserCredential, error) {
	return castResult[[]UserCredential](cbc.execute(func() (interface{}, error) {
		return cbc.api.UserCredentials(ctx)
	}))
}
