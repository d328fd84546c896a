// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
	"github.com/tomtom215/dhis2-user-audit/internal/export"
)

func usernames(records []audit.EnrichedUserRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Username
	}
	return out
}

func TestUsers_DefaultSortByLastLogin(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/users")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var records []audit.EnrichedUserRecord
	decodeData(t, env, &records)

	want := []string{"alice2", "alice", "bob", "carol"}
	if got := usernames(records); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	labels := map[string]string{
		"alice2": "Today",
		"alice":  "Yesterday",
		"bob":    "1 months ago",
		"carol":  "Never logged in",
	}
	for _, r := range records {
		if r.RecencyLabel != labels[r.Username] {
			t.Errorf("%s recency = %q, want %q", r.Username, r.RecencyLabel, labels[r.Username])
		}
	}

	if records[2].Status != audit.StatusDisabled || records[0].Status != audit.StatusActive {
		t.Errorf("unexpected statuses: %s, %s", records[2].Status, records[0].Status)
	}
	if !records[0].IsDuplicateName || !records[1].IsDuplicateName || records[2].IsDuplicateName {
		t.Error("only the two Alice Banda records should be flagged as duplicates")
	}

	if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != 4 {
		t.Errorf("meta.count = %+v, want 4", env.Meta)
	}
	if len(env.Meta.Warnings) != 1 || !strings.Contains(env.Meta.Warnings[0], "alice") {
		t.Errorf("warnings = %v, want one ambiguity warning for alice", env.Meta.Warnings)
	}
	if rec.Header().Get("X-Request-ID") == "" || env.Meta.RequestID != rec.Header().Get("X-Request-ID") {
		t.Error("meta.request_id should echo the X-Request-ID header")
	}
}

func TestUsers_SortNoneKeepsInputOrder(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	env := decodeEnvelope(t, srv.get(t, "/api/v1/users?sort=none"))
	var records []audit.EnrichedUserRecord
	decodeData(t, env, &records)

	want := []string{"alice", "bob", "alice2", "carol"}
	if got := usernames(records); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestUsers_OrganisationUnitScope(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	env := decodeEnvelope(t, srv.get(t, "/api/v1/users?sort=none&org_unit="+testOrgUnit))
	var records []audit.EnrichedUserRecord
	decodeData(t, env, &records)

	want := []string{"alice", "alice2"}
	if got := usernames(records); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("scoped users = %v, want %v", got, want)
	}
}

func TestUsers_InvalidQuery(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	tests := []struct {
		name   string
		target string
	}{
		{"bad org unit", "/api/v1/users?org_unit=abc"},
		{"bad sort", "/api/v1/users?sort=name"},
		{"bad org unit on duplicates", "/api/v1/users/duplicates?org_unit=x"},
		{"bad org unit on export", "/api/v1/users/export.csv?org_unit=x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.get(t, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Error == nil || env.Error.Code != ErrCodeValidation {
				t.Errorf("unexpected error body: %s", rec.Body.String())
			}
		})
	}
}

func TestUserDuplicates(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	env := decodeEnvelope(t, srv.get(t, "/api/v1/users/duplicates"))
	var groups []audit.DuplicateGroup
	decodeData(t, env, &groups)

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].DisplayName != "Alice Banda" || len(groups[0].Records) != 2 {
		t.Errorf("unexpected group: %+v", groups[0])
	}
}

func TestUsersExportCSV(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/users/export.csv?sort=none")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "dhis2-users-20240615-120000.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header plus 4", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(export.Columns, ",") {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"u2", "bob", "Bob Phiri", "2024-05-01T10:00:00Z", "1 months ago", "Disabled", "false"}
	if strings.Join(rows[2], "|") != strings.Join(want, "|") {
		t.Errorf("bob row = %v, want %v", rows[2], want)
	}
	if rows[4][3] != "" {
		t.Errorf("carol lastLogin = %q, want empty", rows[4][3])
	}
}

func TestActivity_ExplicitRange(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/activity?start=2024-06-14&end=2024-06-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report audit.ActivityReport
	decodeData(t, decodeEnvelope(t, rec), &report)

	if report.Total != 4 || report.Active != 2 {
		t.Errorf("total/active = %d/%d, want 4/2", report.Total, report.Active)
	}
	if report.Start.String() != "2024-06-14" || report.End.String() != "2024-06-15" {
		t.Errorf("range = %s..%s", report.Start, report.End)
	}
	for _, r := range report.Records {
		wantActive := r.Username == "alice" || r.Username == "alice2"
		if r.ActiveInRange != wantActive {
			t.Errorf("%s activeInRange = %v, want %v", r.Username, r.ActiveInRange, wantActive)
		}
	}
}

func TestActivity_DefaultRange(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	var report audit.ActivityReport
	decodeData(t, decodeEnvelope(t, srv.get(t, "/api/v1/activity")), &report)

	if report.Start.String() != "2024-05-16" || report.End.String() != "2024-06-15" {
		t.Errorf("default range = %s..%s, want 2024-05-16..2024-06-15", report.Start, report.End)
	}
	if report.Active != 2 {
		t.Errorf("active = %d, want 2", report.Active)
	}
}

func TestActivity_OpenEndedRange(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	var report audit.ActivityReport
	decodeData(t, decodeEnvelope(t, srv.get(t, "/api/v1/activity?start=2024-04-01")), &report)

	if report.End.String() != "2024-06-15" {
		t.Errorf("end = %s, want today", report.End)
	}
	if report.Active != 3 {
		t.Errorf("active = %d, want 3", report.Active)
	}
}

func TestActivity_InvalidRange(t *testing.T) {
	fake := newFakeDHIS2()
	fake.err = errors.New("must not be called")
	srv := newTestServer(t, fake, nil)

	rec := srv.get(t, "/api/v1/activity?start=2024-06-15&end=2024-06-01")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeInvalidRange {
		t.Errorf("error = %+v, want INVALID_RANGE", env.Error)
	}
}

func TestActivity_MalformedDate(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/activity?start=15/06/2024")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
}

func TestActivityExportXLSX(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/activity/export.xlsx?start=2024-06-14&end=2024-06-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("workbook must not be gzip encoded")
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(export.ActiveUsersSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	if rows[1][1] != "alice" || rows[2][1] != "alice2" {
		t.Errorf("exported users = %s, %s", rows[1][1], rows[2][1])
	}
}

func TestActivityExportXLSX_NoActiveUsers(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/activity/export.xlsx?start=2020-01-01&end=2020-01-31")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != ErrCodeNoActiveUsers {
		t.Errorf("error = %+v, want NO_ACTIVE_USERS", env.Error)
	}
}

func TestOrganisationUnits(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	env := decodeEnvelope(t, srv.get(t, "/api/v1/organisation-units"))
	var units []audit.OrganisationUnit
	decodeData(t, env, &units)

	if len(units) != 1 || units[0].ID != testOrgUnit {
		t.Errorf("units = %+v", units)
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "credentials rejected",
			err:        &dhis2.StatusError{Endpoint: dhis2.EndpointUsers, StatusCode: http.StatusUnauthorized},
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeUpstreamUnauthorized,
		},
		{
			name:       "no credentials",
			err:        dhis2.ErrNoCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeCredentialsRequired,
		},
		{
			name:       "circuit open",
			err:        fmt.Errorf("%w: breaker", dhis2.ErrCircuitOpen),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeUpstreamUnavailable,
		},
		{
			name:       "server error",
			err:        &dhis2.StatusError{Endpoint: dhis2.EndpointUsers, StatusCode: http.StatusInternalServerError},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDHIS2()
			fake.err = tt.err
			srv := newTestServer(t, fake, nil)

			for _, target := range []string{"/api/v1/users", "/api/v1/activity", "/api/v1/organisation-units"} {
				rec := srv.get(t, target)
				if rec.Code != tt.wantStatus {
					t.Errorf("%s status = %d, want %d", target, rec.Code, tt.wantStatus)
					continue
				}
				if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("%s error = %+v, want %s", target, env.Error, tt.wantCode)
				}
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t, newFakeDHIS2(), nil)

	rec := srv.get(t, "/api/v1/health/live")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !decodeEnvelope(t, rec).Success {
		t.Error("expected success")
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"reachable", nil, http.StatusOK},
		{"unreachable", errors.New("connection refused"), http.StatusServiceUnavailable},
		{"credentials rejected", dhis2.ErrUnauthorized, http.StatusServiceUnavailable},
		{"no service account", dhis2.ErrNoCredentials, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDHIS2()
			fake.pingErr = tt.pingErr
			srv := newTestServer(t, fake, nil)

			rec := srv.get(t, "/api/v1/health/ready")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
