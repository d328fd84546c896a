// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// Layouts accepted for lastLogin. DHIS2 usually omits the zone.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05Z0700",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
)

// ParseLastLogin parses a DHIS2 lastLogin value. Values without a zone are
// interpreted in loc. It returns nil for empty or unparseable input.
func ParseLastLogin(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	return nil
}

// Source adapts an API to the audit package's record sources.
type Source struct {
	api API
	loc *time.Location
}

// NewSource creates a Source. loc is used for zone-less timestamps.
func NewSource(api API, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{api: api, loc: loc}
}

// Ping checks DHIS2 reachability.
func (s *Source) Ping(ctx context.Context) error {
	return s.api.Ping(ctx)
}

// Users implements audit.UserSource.
func (s *Source) Users(ctx context.Context) ([]audit.UserRecord, error) {
	users, err := s.api.Users(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]audit.UserRecord, 0, len(users))
	for _, u := range users {
		records = append(records, audit.UserRecord{
			ID:                u.ID,
			Username:          u.Username,
			DisplayName:       u.Name,
			OrganisationUnits: toAuditOrgUnits(u.OrganisationUnits),
		})
	}
	return records, nil
}

// Credentials implements audit.CredentialSource. An absent disabled flag
// means enabled.
func (s *Source) Credentials(ctx context.Context) ([]audit.CredentialRecord, error) {
	creds, err := s.api.UserCredentials(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]audit.CredentialRecord, 0, len(creds))
	for _, c := range creds {
		lastLogin := ParseLastLogin(c.LastLogin, s.loc)
		if lastLogin == nil && strings.TrimSpace(c.LastLogin) != "" {
			metrics.DHIS2UnparseableTimestamps.Inc()
			logging.Ctx(ctx).Debug().
				Str("username", c.Username).
				Str("last_login", c.LastLogin).
				Msg("Unparseable lastLogin treated as never logged in")
		}
		records = append(records, audit.CredentialRecord{
			Username:  c.Username,
			LastLogin: lastLogin,
			Disabled:  c.Disabled != nil && *c.Disabled,
		})
	}
	return records, nil
}

// OrganisationUnits lists organisation units as audit values.
func (s *Source) OrganisationUnits(ctx context.Context) ([]audit.OrganisationUnit, error) {
	units, err := s.api.OrganisationUnits(ctx)
	if err != nil {
		return nil, err
	}
	return toAuditOrgUnits(units), nil
}

func toAuditOrgUnits(units []OrganisationUnit) []audit.OrganisationUnit {
	out := make([]audit.OrganisationUnit, 0, len(units))
	for _, ou := range units {
		out = append(out, audit.OrganisationUnit{ID: ou.ID, Name: ou.Name})
	}
	return out
}
