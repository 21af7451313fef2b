// Package calendar implements whole-month date arithmetic for depreciation
// schedules. All functions are pure; callers inject the reference clock where
// "now" matters.
package calendar

import "time"

// NeverDue is returned by MonthsUntil when the target date is absent. An asset
// without an end date never approaches expiration.
const NeverDue = int(^uint(0) >> 1)

// MonthsBetween returns the number of complete months between start and end.
// The final partial month does not count: when end's day-of-month is earlier
// than start's, the result is decremented by one. An end falling on the last
// day of its month always closes the month, so Jan-31 to Feb-29 is one
// complete month even though 29 < 31. Either date being nil yields (0, false).
func MonthsBetween(start, end *time.Time) (int, bool) {
	if start == nil || end == nil {
		return 0, false
	}
	s, e := *start, *end
	months := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if e.Day() < s.Day() && e.Day() != daysIn(e.Year(), e.Month()) {
		months--
	}
	return months, true
}

// MonthsUntil returns the complete months from now until target, or NeverDue
// when target is nil.
func MonthsUntil(now time.Time, target *time.Time) int {
	if target == nil {
		return NeverDue
	}
	months, _ := MonthsBetween(&now, target)
	return months
}

// AddMonths adds n whole months to d, preserving the day-of-month. When the
// resulting month is shorter, the day is clamped to its last valid day, so one
// month after Jan-31 is Feb-28 (Feb-29 in leap years).
func AddMonths(d time.Time, n int) time.Time {
	year, month, day := d.Date()
	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// SplitMonths decomposes a total month count into whole years and remaining
// months. Negative totals are rejected.
func SplitMonths(total int) (years, months int, ok bool) {
	if total < 0 {
		return 0, 0, false
	}
	return total / 12, total % 12, true
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
