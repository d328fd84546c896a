// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
)

// readyTimeout bounds the DHIS2 ping of the readiness probe.
const readyTimeout = 5 * time.Second

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 200 when DHIS2 is reachable with the configured
// service account and 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	err := h.directory.Ping(ctx)
	status := map[string]interface{}{
		"ready":           err == nil,
		"dhis2_reachable": err == nil || errors.Is(err, dhis2.ErrUnauthorized),
		"circuit_breaker": h.breakerState(),
	}

	// Without a service account every call uses caller credentials, so
	// there is nothing to probe with.
	if errors.Is(err, dhis2.ErrNoCredentials) {
		status["ready"] = true
		status["dhis2_reachable"] = "unchecked"
		rw.Success(status)
		return
	}

	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "DHIS2 is not ready", status)
		return
	}

	rw.Success(status)
}
