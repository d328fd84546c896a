// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
)

// Error codes for API responses.
const (
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidRange         = "INVALID_RANGE"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeNoActiveUsers        = "NO_ACTIVE_USERS"
	ErrCodeCredentialsRequired  = "CREDENTIALS_REQUIRED"
	ErrCodeUpstreamUnauthorized = "UPSTREAM_UNAUTHORIZED"
	ErrCodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamError        = "UPSTREAM_ERROR"
	ErrCodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeTooManyRequests      = "TOO_MANY_REQUESTS"
)

// writeAuditError maps an error from the audit pipeline or the DHIS2 client
// to a status code and error code.
func writeAuditError(rw *ResponseWriter, err error) {
	var rangeErr *audit.InvalidRangeError

	switch {
	case errors.As(err, &rangeErr):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeInvalidRange, rangeErr.Error(), map[string]string{
			"start": rangeErr.Start.String(),
			"end":   rangeErr.End.String(),
		})
		return

	case errors.Is(err, dhis2.ErrNoCredentials):
		rw.w.Header().Set("WWW-Authenticate", `Basic realm="DHIS2"`)
		rw.Error(http.StatusUnauthorized, ErrCodeCredentialsRequired, "DHIS2 credentials are required")
		return

	case errors.Is(err, dhis2.ErrUnauthorized):
		rw.w.Header().Set("WWW-Authenticate", `Basic realm="DHIS2"`)
		rw.Error(http.StatusUnauthorized, ErrCodeUpstreamUnauthorized, "DHIS2 rejected the credentials")
		return

	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful can be written.
		logging.Ctx(rw.r.Context()).Debug().Err(err).Msg("Request canceled")
		return
	}

	logging.Ctx(rw.r.Context()).Error().Err(err).Msg("DHIS2 request failed")

	switch {
	case errors.Is(err, dhis2.ErrCircuitOpen):
		rw.w.Header().Set("Retry-After", "60")
		rw.Error(http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "DHIS2 is temporarily unavailable")
	case errors.Is(err, dhis2.ErrRateLimited):
		rw.w.Header().Set("Retry-After", "60")
		rw.Error(http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "DHIS2 is rate limiting requests")
	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeUpstreamTimeout, "DHIS2 did not answer in time")
	default:
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamError, "Failed to load data from DHIS2")
	}
}
