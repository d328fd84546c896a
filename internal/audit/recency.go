// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package audit

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Recency labels that do not carry a count.
const (
	LabelNeverLoggedIn = "Never logged in"
	LabelToday         = "Today"
	LabelYesterday     = "Yesterday"
)

// AgeDays returns floor((now - lastLogin) / 86400) over Unix seconds, which
// stays exact past the ~292-year range of time.Duration. A lastLogin after
// now yields a negative age.
func AgeDays(lastLogin, now time.Time) int {
	elapsed := now.Unix() - lastLogin.Unix()
	days := elapsed / secondsPerDay
	if elapsed%secondsPerDay < 0 {
		days--
	}
	return int(days)
}

// Classify returns the human-readable recency label for a last-login
// timestamp evaluated at now.
//
// Buckets are half-open with the boundary in the higher bucket: 30 days is
// "1 months ago" and 365 days is "1 years ago". Timestamps in the future
// (clock skew between DHIS2 and this service) classify as "Today".
func Classify(lastLogin *time.Time, now time.Time) string {
	if lastLogin == nil {
		return LabelNeverLoggedIn
	}

	days := AgeDays(*lastLogin, now)
	switch {
	case days < 1:
		return LabelToday
	case days < 2:
		return LabelYesterday
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}

// Tier is a coarse activity bucket used to colour last-login values.
type Tier string

// Activity tiers.
const (
	TierNever    Tier = "never"
	TierActive   Tier = "active"
	TierRecent   Tier = "recent"
	TierInactive Tier = "inactive"
)

// TierThresholds bounds the active and recent tiers, in whole days, inclusive.
type TierThresholds struct {
	ActiveDays int
	RecentDays int
}

// DefaultTierThresholds returns the 30/90 day thresholds.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{ActiveDays: 30, RecentDays: 90}
}

// ActivityTier buckets a last-login timestamp: absent is never, an age up to
// ActiveDays is active, up to RecentDays is recent, anything older is inactive.
func ActivityTier(lastLogin *time.Time, now time.Time, thresholds TierThresholds) Tier {
	if lastLogin == nil {
		return TierNever
	}

	days := AgeDays(*lastLogin, now)
	switch {
	case days <= thresholds.ActiveDays:
		return TierActive
	case days <= thresholds.RecentDays:
		return TierRecent
	default:
		return TierInactive
	}
}
