// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import (
	"sort"
	"time"
)

// GroupByDisplayName groups records by exact (case-sensitive) display name.
// Within a group, records keep their input order.
func GroupByDisplayName(records []EnrichedUserRecord) map[string][]EnrichedUserRecord {
	groups := make(map[string][]EnrichedUserRecord)
	for _, record := range records {
		groups[record.DisplayName] = append(groups[record.DisplayName], record)
	}
	return groups
}

// DuplicateGroups returns only the display names held by more than one
// record, sorted by name.
func DuplicateGroups(records []EnrichedUserRecord) []DuplicateGroup {
	duplicates := make([]DuplicateGroup, 0)
	for name, members := range GroupByDisplayName(records) {
		if len(members) > 1 {
			duplicates = append(duplicates, DuplicateGroup{DisplayName: name, Records: members})
		}
	}

	sort.Slice(duplicates, func(i, j int) bool {
		return duplicates[i].DisplayName < duplicates[j].DisplayName
	})
	return duplicates
}

// CountDuplicateNames returns how many records carry IsDuplicateName.
func CountDuplicateNames(records []EnrichedUserRecord) int {
	count := 0
	for i := range records {
		if records[i].IsDuplicateName {
			count++
		}
	}
	return count
}

// SortByLastLogin returns a copy of records ordered by last login, most
// recent first. Records that never logged in go last; ties keep input order.
func SortByLastLogin(records []EnrichedUserRecord) []EnrichedUserRecord {
	sorted := make([]EnrichedUserRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return loginAfter(sorted[i].LastLogin, sorted[j].LastLogin)
	})
	return sorted
}

func loginAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

// FilterByOrganisationUnit keeps the users assigned to the organisation unit
// with the given ID. An empty ID keeps every user.
func FilterByOrganisationUnit(users []UserRecord, orgUnitID string) []UserRecord {
	filtered := make([]UserRecord, 0, len(users))
	for _, user := range users {
		if orgUnitID == "" || memberOf(user, orgUnitID) {
			filtered = append(filtered, user)
		}
	}
	return filtered
}

func memberOf(user UserRecord, orgUnitID string) bool {
	for _, ou := range user.OrganisationUnits {
		if ou.ID == orgUnitID {
			return true
		}
	}
	return false
}
