// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/export"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) runActivityAudit(rw *ResponseWriter, r *http.Request) *audit.ActivityReport {
	req := parseActivityRequest(r)
	if !validateRequest(rw, &req) {
		return nil
	}

	defaultStart, defaultEnd := h.auditor.DefaultRange()
	start, end := req.Dates(defaultStart, defaultEnd)

	report, err := h.auditor.ActivityAudit(r.Context(), start, end)
	if err != nil {
		writeAuditError(rw, err)
		return nil
	}
	return report
}

// Activity reports, for every user, whether the last login falls within
// [start, end]. Both bounds are inclusive calendar dates (YYYY-MM-DD) and
// default to the configured window ending today.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report := h.runActivityAudit(rw, r)
	if report == nil {
		return
	}

	rw.SuccessWithMeta(report, &APIMeta{Warnings: ambiguityWarnings(report.AmbiguousUsernames)})
}

// ActivityExportXLSX downloads the users active in [start, end] as an XLSX
// workbook, or answers 404 NO_ACTIVE_USERS when there are none.
func (h *Handler) ActivityExportXLSX(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report := h.runActivityAudit(rw, r)
	if report == nil {
		return
	}

	// Buffered so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.WriteActiveWorkbook(&buf, report.Records); err != nil {
		if errors.Is(err, export.ErrNoActiveUsers) {
			rw.Error(http.StatusNotFound, ErrCodeNoActiveUsers, "No active user found between "+
				report.Start.String()+" and "+report.End.String())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to build workbook")
		rw.InternalError("Failed to build workbook")
		return
	}

	filename := "dhis2-active-users-" + report.Start.String() + "-to-" + report.End.String() + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write workbook")
	}
}
