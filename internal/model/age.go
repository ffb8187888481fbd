package model

import "time"

// DealAge buckets a deal by days elapsed since creation.
type DealAge string

const (
	// AgeNew covers deals at most NewMaxDays old.
	AgeNew DealAge = "new"
	// AgeAging covers deals older than NewMaxDays and at most AgingMaxDays.
	AgeAging DealAge = "aging"
	// AgeStale covers everything older than AgingMaxDays.
	AgeStale DealAge = "stale"
)

// Age thresholds in whole days, inclusive.
const (
	NewMaxDays   = 7
	AgingMaxDays = 30
)

// ClassifyAge maps a creation time to an age bucket relative to now.
// Elapsed time is truncated to whole days; creation times in the future
// count as zero days.
func ClassifyAge(createdAt, now time.Time) DealAge {
	days := ElapsedDays(createdAt, now)
	switch {
	case days <= NewMaxDays:
		return AgeNew
	case days <= AgingMaxDays:
		return AgeAging
	default:
		return AgeStale
	}
}

// ElapsedDays returns the whole days between createdAt and now, never
// negative.
func ElapsedDays(createdAt, now time.Time) int {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// Color returns the presentation class for the bucket. Unknown buckets fall
// back to the "new" class.
func (a DealAge) Color() string {
	switch a {
	case AgeAging:
		return "deal-age-aging"
	case AgeStale:
		return "deal-age-stale"
	default:
		return "deal-age-new"
	}
}
