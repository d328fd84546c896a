// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// ErrInvalidRange is matched by every InvalidRangeError via errors.Is.
var ErrInvalidRange = errors.New("invalid date range")

// InvalidRangeError reports an activity window whose start is after its end.
type InvalidRangeError struct {
	Start civil.Date
	End   civil.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

// Is makes errors.Is(err, ErrInvalidRange) hold.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// AmbiguousCredentialMatchError lists usernames that appeared on more than
// one credential record. It is a diagnostic: the join still completes using
// the last record seen for each username.
type AmbiguousCredentialMatchError struct {
	Usernames []string
}

func (e *AmbiguousCredentialMatchError) Error() string {
	return fmt.Sprintf("ambiguous credential match for %d username(s): %s",
		len(e.Usernames), strings.Join(e.Usernames, ", "))
}

// AmbiguousUsernames extracts the usernames from an AmbiguousCredentialMatchError,
// or returns nil for any other error.
func AmbiguousUsernames(err error) []string {
	var ambiguous *AmbiguousCredentialMatchError
	if errors.As(err, &ambiguous) {
		return ambiguous.Usernames
	}
	return nil
}
