// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/dhis2-user-audit/internal/logging"
	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// UserSource lists every user account.
type UserSource interface {
	Users(ctx context.Context) ([]UserRecord, error)
}

// CredentialSource lists the login metadata of every account.
type CredentialSource interface {
	Credentials(ctx context.Context) ([]CredentialRecord, error)
}

// AuditorConfig configures an Auditor.
type AuditorConfig struct {
	Tiers TierThresholds

	// Location is used to compute "today" for default activity windows.
	Location *time.Location

	// DefaultRangeDays is the width of the default activity window.
	DefaultRangeDays int

	// Now returns the evaluation instant. Defaults to time.Now.
	Now func() time.Time
}

// Auditor runs the audit pipeline against live user and credential sources.
type Auditor struct {
	users       UserSource
	credentials CredentialSource
	cfg         AuditorConfig
}

// NewAuditor creates an Auditor. Zero-valued config fields take defaults.
func NewAuditor(users UserSource, credentials CredentialSource, cfg AuditorConfig) *Auditor {
	if cfg.Tiers == (TierThresholds{}) {
		cfg.Tiers = DefaultTierThresholds()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Auditor{users: users, credentials: credentials, cfg: cfg}
}

// Report is the result of a user audit.
type Report struct {
	GeneratedAt        time.Time            `json:"generatedAt"`
	OrganisationUnitID string               `json:"organisationUnitId,omitempty"`
	Records            []EnrichedUserRecord `json:"records"`
	AmbiguousUsernames []string             `json:"ambiguousUsernames,omitempty"`
}

// ActivityReport is the result of an activity audit over [Start, End].
type ActivityReport struct {
	GeneratedAt        time.Time        `json:"generatedAt"`
	Start              civil.Date       `json:"start"`
	End                civil.Date       `json:"end"`
	Records            []ActivityRecord `json:"records"`
	Total              int              `json:"total"`
	Active             int              `json:"active"`
	AmbiguousUsernames []string         `json:"ambiguousUsernames,omitempty"`
}

// Today returns the current calendar date in the configured location.
func (a *Auditor) Today() civil.Date {
	return civil.DateOf(a.cfg.Now().In(a.cfg.Location))
}

// DefaultRange returns the activity window used when none is supplied.
func (a *Auditor) DefaultRange() (start, end civil.Date) {
	return DefaultRange(a.Today(), a.cfg.DefaultRangeDays)
}

// LoadUsers fetches users and credentials concurrently, scopes users to the
// organisation unit when orgUnitID is set and runs the enrichment pipeline.
// Duplicate names are evaluated within the scoped set.
func (a *Auditor) LoadUsers(ctx context.Context, orgUnitID string) (report *Report, err error) {
	start := time.Now()
	defer func() { metrics.RecordAuditRun("users", time.Since(start), err) }()

	return a.loadUsers(ctx, orgUnitID)
}

func (a *Auditor) loadUsers(ctx context.Context, orgUnitID string) (*Report, error) {
	var (
		users       []UserRecord
		credentials []CredentialRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = a.users.Users(gctx); err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if credentials, err = a.credentials.Credentials(gctx); err != nil {
			return fmt.Errorf("failed to fetch credentials: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := a.cfg.Now()
	scoped := FilterByOrganisationUnit(users, orgUnitID)
	records, diagnostic := EnrichWithDiagnostics(scoped, credentials, now, a.cfg.Tiers)

	ambiguous := AmbiguousUsernames(diagnostic)
	if len(ambiguous) > 0 {
		logging.Ctx(ctx).Warn().
			Strs("usernames", ambiguous).
			Msg("Multiple credential records share a username; using the last one")
	}

	duplicates := CountDuplicateNames(records)
	metrics.RecordEnrichment(len(records), duplicates, len(ambiguous))

	logging.Ctx(ctx).Debug().
		Str("org_unit", orgUnitID).
		Int("users", len(users)).
		Int("credentials", len(credentials)).
		Int("records", len(records)).
		Int("duplicate_names", duplicates).
		Msg("User audit completed")

	return &Report{
		GeneratedAt:        now,
		OrganisationUnitID: orgUnitID,
		Records:            records,
		AmbiguousUsernames: ambiguous,
	}, nil
}

// ActivityAudit reports which users logged in on a date within [start, end].
// The range is validated before any upstream call.
func (a *Auditor) ActivityAudit(ctx context.Context, start, end civil.Date) (report *ActivityReport, err error) {
	began := time.Now()
	defer func() { metrics.RecordAuditRun("activity", time.Since(began), err) }()

	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	users, err := a.loadUsers(ctx, "")
	if err != nil {
		return nil, err
	}

	activity, err := FilterActiveInRange(users.Records, start, end)
	if err != nil {
		return nil, err
	}

	active := len(ActiveOnly(activity))
	metrics.AuditActiveInRange.Set(float64(active))

	logging.Ctx(ctx).Info().
		Str("start", start.String()).
		Str("end", end.String()).
		Int("total", len(activity)).
		Int("active", active).
		Msg("Activity audit completed")

	return &ActivityReport{
		GeneratedAt:        users.GeneratedAt,
		Start:              start,
		End:                end,
		Records:            activity,
		Total:              len(activity),
		Active:             active,
		AmbiguousUsernames: users.AmbiguousUsernames,
	}, nil
}
