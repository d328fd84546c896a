// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import (
	"time"

	"cloud.google.com/go/civil"
)

// ValidateRange returns an *InvalidRangeError when start is after end.
func ValidateRange(start, end civil.Date) error {
	if start.After(end) {
		return &InvalidRangeError{Start: start, End: end}
	}
	return nil
}

// FilterActiveInRange marks each record active when its last login falls on
// a calendar date in [start, end], both ends inclusive. The date is read in
// the timestamp's own location. Records without a last login are never
// active. Order and length follow the input.
func FilterActiveInRange(records []EnrichedUserRecord, start, end civil.Date) ([]ActivityRecord, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	activity := make([]ActivityRecord, 0, len(records))
	for _, record := range records {
		activity = append(activity, ActivityRecord{
			EnrichedUserRecord: record,
			ActiveInRange:      loggedInWithin(record.LastLogin, start, end),
		})
	}
	return activity, nil
}

func loggedInWithin(lastLogin *time.Time, start, end civil.Date) bool {
	if lastLogin == nil {
		return false
	}
	date := civil.DateOf(*lastLogin)
	return !date.Before(start) && !date.After(end)
}

// ActiveOnly returns the records with ActiveInRange set.
func ActiveOnly(activity []ActivityRecord) []ActivityRecord {
	active := make([]ActivityRecord, 0, len(activity))
	for _, record := range activity {
		if record.ActiveInRange {
			active = append(active, record)
		}
	}
	return active
}

// DefaultRange returns [today - days, today].
func DefaultRange(today civil.Date, days int) (start, end civil.Date) {
	return today.AddDays(-days), today
}
