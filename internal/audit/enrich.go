// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import "time"

// IndexCredentials builds the username lookup used by the join. Usernames
// are compared exactly; when a username repeats, the last record wins.
//
// The returned map is always complete. The error is non-nil only when some
// username repeated, and is then an *AmbiguousCredentialMatchError listing
// those usernames in order of first collision.
func IndexCredentials(credentials []CredentialRecord) (map[string]CredentialRecord, error) {
	index := make(map[string]CredentialRecord, len(credentials))
	var ambiguous []string
	reported := make(map[string]bool)

	for _, cred := range credentials {
		if _, exists := index[cred.Username]; exists && !reported[cred.Username] {
			reported[cred.Username] = true
			ambiguous = append(ambiguous, cred.Username)
		}
		index[cred.Username] = cred
	}

	if len(ambiguous) > 0 {
		return index, &AmbiguousCredentialMatchError{Usernames: ambiguous}
	}
	return index, nil
}

// Enrich left-joins users to credentials on username and derives status,
// recency and the duplicate-name flag. The result has one record per user,
// in input order. Users without a credential get a nil LastLogin, status
// Active and the "Never logged in" label.
func Enrich(users []UserRecord, credentials []CredentialRecord, now time.Time) []EnrichedUserRecord {
	records, _ := EnrichWithDiagnostics(users, credentials, now, DefaultTierThresholds())
	return records
}

// EnrichWithDiagnostics is Enrich with configurable activity tiers. It also
// returns the IndexCredentials diagnostic; the records are valid either way.
func EnrichWithDiagnostics(users []UserRecord, credentials []CredentialRecord, now time.Time, thresholds TierThresholds) ([]EnrichedUserRecord, error) {
	index, diagnostic := IndexCredentials(credentials)

	records := make([]EnrichedUserRecord, 0, len(users))
	for _, user := range users {
		record := EnrichedUserRecord{UserRecord: user}

		if cred, ok := index[user.Username]; ok {
			record.LastLogin = cred.LastLogin
			record.Status = StatusOf(cred.Disabled)
		} else {
			record.Status = StatusActive
		}

		record.RecencyLabel = Classify(record.LastLogin, now)
		record.ActivityTier = ActivityTier(record.LastLogin, now, thresholds)
		records = append(records, record)
	}

	markDuplicateNames(records)
	return records, diagnostic
}

// markDuplicateNames flags every record whose display name is shared with
// at least one other record of the set.
func markDuplicateNames(records []EnrichedUserRecord) {
	groups := GroupByDisplayName(records)
	for i := range records {
		records[i].IsDuplicateName = len(groups[records[i].DisplayName]) > 1
	}
}
