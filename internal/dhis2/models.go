// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

// Wire models for the DHIS2 Web API. Only the fields requested through the
// fields= parameter are declared; unknown fields are ignored on decode.

// OrganisationUnit is an entry of /api/organisationUnits.
type OrganisationUnit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is an entry of /api/users.
type User struct {
	ID                string             `json:"id"`
	Username          string             `json:"username"`
	Name              string             `json:"name"`
	OrganisationUnits []OrganisationUnit `json:"organisationUnits"`
}

// UserCredential is an entry of /api/userCredentials. LastLogin is kept as
// the raw string; Disabled is nil when the field is omitted.
type UserCredential struct {
	Username  string `json:"username"`
	LastLogin string `json:"lastLogin"`
	Disabled  *bool  `json:"disabled"`
}

// SystemInfo is the subset of /api/system/info used for health checks.
type SystemInfo struct {
	Version     string `json:"version"`
	Revision    string `json:"revision"`
	ServerDate  string `json:"serverDate"`
	ContextPath string `json:"contextPath"`
}

type organisationUnitsResponse struct {
	OrganisationUnits []OrganisationUnit `json:"organisationUnits"`
}

type usersResponse struct {
	Users []User `json:"users"`
}

type userCredentialsResponse struct {
	UserCredentials []UserCredential `json:"userCredentials"`
}
