// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// Pinger checks that DHIS2 answers with the configured credentials.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeService pings DHIS2 on an interval, publishes the result as the
// dhis2_up gauge and logs reachability changes.
type ProbeService struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	name     string

	// state is probeUnknown until the first probe completes.
	state atomic.Int32
}

const (
	probeUnknown int32 = iota
	probeUp
	probeDown
)

// NewProbeService creates a probe. A non-positive interval defaults to 1m;
// each ping is bounded by the smaller of interval and 10s.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProbeService(pinger Pinger, interval time.Duration, logger zerolog.Logger) *ProbeService {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := 10 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &ProbeService{
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("service", "dhis2-probe").Logger(),
		name:     "dhis2-probe",
	}
}

// Serve implements suture.Service. It probes once immediately and then on
// every tick until ctx is canceled.
func (s *ProbeService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("DHIS2 probe starting")

	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *ProbeService) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.pinger.Ping(pingCtx)
	if ctx.Err() != nil {
		return
	}

	next := probeUp
	if err != nil {
		next = probeDown
	}
	prev := s.state.Swap(next)

	if next == probeUp {
		metrics.DHIS2Up.Set(1)
	} else {
		metrics.DHIS2Up.Set(0)
	}

	switch {
	case prev != next && next == probeUp:
		s.logger.Info().Msg("DHIS2 is reachable")
	case prev != next:
		s.logger.Warn().Err(err).Msg("DHIS2 is unreachable")
	case next == probeDown:
		s.logger.Debug().Err(err).Msg("DHIS2 still unreachable")
	}
}

// Reachable reports the result of the last completed probe; ok is false
// before the first one.
func (s *ProbeService) Reachable() (reachable, ok bool) {
	switch s.state.Load() {
	case probeUp:
		return true, true
	case probeDown:
		return false, true
	default:
		return false, false
	}
}

// String names the service in supervisor events.
func (s *ProbeService) String() string {
	return s.name
}
