// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"net/http"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/export"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
)

// OrganisationUnits lists the organisation units available for scoping.
func (h *Handler) OrganisationUnits(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	units, err := h.directory.OrganisationUnits(r.Context())
	if err != nil {
		writeAuditError(rw, err)
		return
	}

	rw.SuccessList(units, len(units), nil)
}

// loadUsers validates the users query and runs the user audit. It writes
// the error response and returns nil on failure.
func (h *Handler) loadUsers(rw *ResponseWriter, r *http.Request) (*audit.Report, UsersRequest) {
	req := parseUsersRequest(r)
	if !validateRequest(rw, &req) {
		return nil, req
	}

	report, err := h.auditor.LoadUsers(r.Context(), req.OrgUnit)
	if err != nil {
		writeAuditError(rw, err)
		return nil, req
	}

	if req.Sort == SortLastLogin {
		report.Records = audit.SortByLastLogin(report.Records)
	}
	return report, req
}

func ambiguityWarnings(usernames []string) []string {
	warnings := make([]string, 0, len(usernames))
	for _, u := range usernames {
		warnings = append(warnings, "multiple credential records for username "+u+"; the last one was used")
	}
	return warnings
}

// Users returns the enriched user records.
//
// Query parameters:
//   - org_unit: restrict to users assigned to this organisation unit
//   - sort: last_login (default, most recent first, never-logged-in last) or none
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, _ := h.loadUsers(rw, r)
	if report == nil {
		return
	}

	rw.SuccessList(report.Records, len(report.Records), ambiguityWarnings(report.AmbiguousUsernames))
}

// UserDuplicates returns only the groups of records sharing a display name.
func (h *Handler) UserDuplicates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, _ := h.loadUsers(rw, r)
	if report == nil {
		return
	}

	groups := audit.DuplicateGroups(report.Records)
	rw.SuccessList(groups, len(groups), ambiguityWarnings(report.AmbiguousUsernames))
}

// UsersExportCSV downloads the enriched user records as CSV.
func (h *Handler) UsersExportCSV(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, req := h.loadUsers(rw, r)
	if report == nil {
		return
	}

	filename := "dhis2-users-" + h.now().Format("20060102-150405") + ".csv"
	if req.OrgUnit != "" {
		filename = "dhis2-users-" + req.OrgUnit + "-" + h.now().Format("20060102-150405") + ".csv"
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Cache-Control", "no-store")

	if err := export.WriteCSV(w, report.Records); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write CSV export")
	}
}
