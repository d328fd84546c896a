// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/tomtom215/dhis2-user-audit/internal/validation"
)

// Sort orders accepted by the users endpoints.
const (
	SortLastLogin = "last_login"
	SortNone      = "none"
)

// UsersRequest holds the query parameters of the users endpoints.
type UsersRequest struct {
	OrgUnit string `query:"org_unit" validate:"omitempty,dhis2uid"`
	Sort    string `query:"sort" validate:"omitempty,oneof=last_login none"`
}

// ActivityRequest holds the query parameters of the activity endpoints.
// Both dates are optional; a missing bound takes the default window.
type ActivityRequest struct {
	Start string `query:"start" validate:"omitempty,isodate"`
	End   string `query:"end" validate:"omitempty,isodate"`
}

func parseUsersRequest(r *http.Request) UsersRequest {
	q := r.URL.Query()
	req := UsersRequest{
		OrgUnit: q.Get("org_unit"),
		Sort:    q.Get("sort"),
	}
	if req.Sort == "" {
		req.Sort = SortLastLogin
	}
	return req
}

func parseActivityRequest(r *http.Request) ActivityRequest {
	q := r.URL.Query()
	return ActivityRequest{
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
}

// Dates resolves the request against the default window. It must only be
// called after validation succeeded.
func (req ActivityRequest) Dates(defaultStart, defaultEnd civil.Date) (start, end civil.Date) {
	start, end = defaultStart, defaultEnd
	if req.Start != "" {
		start, _ = civil.ParseDate(req.Start)
	}
	if req.End != "" {
		end, _ = civil.ParseDate(req.End)
	}
	return start, end
}

// validateRequest writes a VALIDATION_ERROR response and returns false when
// v is invalid.
func validateRequest(rw *ResponseWriter, v interface{}) bool {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return true
	}

	apiErr := validationErr.ToAPIError()
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, apiErr.Message, apiErr.Details)
	return false
}
