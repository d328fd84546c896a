// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

// Package audit joins DHIS2 user accounts with their login credentials and
// derives the audit attributes used by the presenter: account status,
// last-login recency, duplicate display names and activity within a date
// range.
//
// The pipeline functions (Enrich, Classify, FilterActiveInRange,
// GroupByDisplayName) are pure: every time-dependent result takes the
// evaluation instant as an argument. Auditor wires them to the DHIS2
// sources and is the only part of the package that performs I/O.
package audit

import "time"

// OrganisationUnit identifies a node of the DHIS2 organisation hierarchy.
type OrganisationUnit struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UserRecord is a DHIS2 user account as listed by the users endpoint.
type UserRecord struct {
	ID                string             `json:"id"`
	Username          string             `json:"username"`
	DisplayName       string             `json:"name"`
	OrganisationUnits []OrganisationUnit `json:"organisationUnits"`
}

// CredentialRecord carries the login metadata of one username.
// A nil LastLogin means the account has never logged in.
type CredentialRecord struct {
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"lastLogin"`
	Disabled  bool       `json:"disabled"`
}

// Status is the account status derived from the credential's disabled flag.
type Status string

// Account statuses.
const (
	StatusActive   Status = "Active"
	StatusDisabled Status = "Disabled"
)

// StatusOf maps a disabled flag to a Status.
func StatusOf(disabled bool) Status {
	if disabled {
		return StatusDisabled
	}
	return StatusActive
}

// EnrichedUserRecord is a user joined with its credential and the derived
// audit attributes.
type EnrichedUserRecord struct {
	UserRecord

	LastLogin       *time.Time `json:"lastLogin"`
	RecencyLabel    string     `json:"recencyLabel"`
	Status          Status     `json:"status"`
	IsDuplicateName bool       `json:"isDuplicateName"`
	ActivityTier    Tier       `json:"activityTier"`
}

// ActivityRecord pairs an enriched record with its membership in an
// activity window.
type ActivityRecord struct {
	EnrichedUserRecord

	ActiveInRange bool `json:"activeInRange"`
}

// DuplicateGroup lists the records sharing one display name.
type DuplicateGroup struct {
	DisplayName string               `json:"name"`
	Records     []EnrichedUserRecord `json:"records"`
}
