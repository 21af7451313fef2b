package review

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/calendar"
)

// IsReviewed reports whether an item counts as handled for scope splits. An
// item is reviewed when its status is terminal, when its revision fields were
// touched, or when a justification or physical condition was captured. A
// reverted item is always pending again, regardless of any other flag.
func IsReviewed(it Item) bool {
	if it.Status == StatusReverted {
		return false
	}
	switch it.Status {
	case StatusReviewed, StatusApproved, StatusCompleted:
		return true
	}
	if it.Changed {
		return true
	}
	return it.Justification != "" || it.PhysicalCondition != ""
}

// NearExpiration reports whether the item's effective depreciation end falls
// within the 18-month window from now. Items without an end date never
// expire.
func NearExpiration(now time.Time, it Item) bool {
	months := calendar.MonthsUntil(now, it.CurrentEnd())
	return months >= 0 && months <= NearExpirationMonths
}

// GroupByAsset buckets items by asset number. Key set and bucket membership
// are exact; iteration order over the result is unspecified.
func GroupByAsset(items []Item) map[string][]Item {
	groups := make(map[string][]Item)
	for _, it := range items {
		groups[it.AssetNumber] = append(groups[it.AssetNumber], it)
	}
	return groups
}

// FullyDepreciated reports whether an asset group is written off entirely:
// every sub-item carries a zero book value and the group includes the main
// record (sub-number "0").
//
// TODO: confirm the sub-number "0" requirement with product; carried over
// from the source system unchanged.
func FullyDepreciated(group []Item) bool {
	if len(group) == 0 {
		return false
	}
	hasMain := false
	for _, it := range group {
		if !it.BookValue.IsZero() {
			return false
		}
		if it.SubNumber == "0" {
			hasMain = true
		}
	}
	return hasMain
}
