// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
)

// Auditor runs the audit pipeline. Implemented by *audit.Auditor.
type Auditor interface {
	LoadUsers(ctx context.Context, orgUnitID string) (*audit.Report, error)
	ActivityAudit(ctx context.Context, start, end civil.Date) (*audit.ActivityReport, error)
	DefaultRange() (start, end civil.Date)
}

// Directory lists organisation units and checks DHIS2 reachability.
// Implemented by *dhis2.Source.
type Directory interface {
	OrganisationUnits(ctx context.Context) ([]audit.OrganisationUnit, error)
	Ping(ctx context.Context) error
}

// BreakerState reports the DHIS2 circuit breaker state, or "disabled".
type BreakerState func() string

// Handler serves the audit endpoints.
type Handler struct {
	auditor      Auditor
	directory    Directory
	breakerState BreakerState
	startTime    time.Time
	now          func() time.Time
}

// NewHandler creates a Handler. breakerState may be nil.
func NewHandler(auditor Auditor, directory Directory, breakerState BreakerState) *Handler {
	if breakerState == nil {
		breakerState = func() string { return "disabled" }
	}
	return &Handler{
		auditor:      auditor,
		directory:    directory,
		breakerState: breakerState,
		startTime:    time.Now(),
		now:          time.Now,
	}
}
