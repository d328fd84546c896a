// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import "context"

// Credentials is a DHIS2 username/password pair used for Basic
// authentication. It is never logged.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no username was supplied.
func (c Credentials) IsZero() bool {
	return c.Username == ""
}

type credentialsKey struct{}

// ContextWithCredentials returns a context whose DHIS2 calls authenticate
// with creds instead of the client's configured service account.
func ContextWithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credentials stored by ContextWithCredentials.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok && !creds.IsZero()
}
