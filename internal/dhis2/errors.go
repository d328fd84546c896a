// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when DHIS2 rejects the credentials (401/403).
	ErrUnauthorized = errors.New("dhis2: credentials rejected")

	// ErrNoCredentials is returned when neither the request context nor the
	// configuration supplies credentials.
	ErrNoCredentials = errors.New("dhis2: no credentials available")

	// ErrRateLimited is returned when DHIS2 keeps answering 429 after all retries.
	ErrRateLimited = errors.New("dhis2: rate limit exceeded")
)

// StatusError is a non-200 answer from DHIS2.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap maps authentication failures to ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// kind classifies the status for metrics.
func (e *StatusError) kind() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "unauthorized"
	case e.StatusCode >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

// IsClientError reports whether err is caused by the caller (bad or missing
// credentials) rather than by DHIS2 being unhealthy. Such errors do not
// count against the circuit breaker.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoCredentials)
}
