package review

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/calendar"
)

// PreviewMassRevision builds the comparative preview for a mass revision. It
// is pure: nothing is validated against business rules and nothing is
// persisted. Each selected item resolves its own new end from its own
// depreciation start plus the shared delta (or the shared explicit end date),
// and the line reports the signed month difference against the item's
// previous end.
//
// The full preview is always computed before any commit request is
// dispatched; commit re-runs the binding single-item validation.
func PreviewMassRevision(now time.Time, items []Item, in RevisionInput) []PreviewLine {
	lines := make([]PreviewLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, previewLine(now, it, in))
	}
	return lines
}

func previewLine(now time.Time, it Item, in RevisionInput) PreviewLine {
	line := PreviewLine{
		ItemID:      it.ID,
		AssetNumber: it.AssetNumber,
		SubNumber:   it.SubNumber,
		PreviousEnd: it.CurrentEnd(),
		Direction:   DirectionKeep,
	}
	newEnd := resolvePreviewEnd(it, in)
	if newEnd == nil {
		return line
	}
	line.NewEnd = newEnd
	if diff, ok := calendar.MonthsBetween(line.PreviousEnd, newEnd); ok {
		line.MonthsDiff = diff
		switch {
		case diff > 0:
			line.Direction = DirectionIncrease
		case diff < 0:
			line.Direction = DirectionDecrease
		}
	}
	due := calendar.MonthsUntil(now, newEnd)
	line.NearExpiration = due >= 0 && due <= NearExpirationMonths
	return line
}

func resolvePreviewEnd(it Item, in RevisionInput) *time.Time {
	if in.Direction == DirectionKeep {
		return nil
	}
	if in.ExplicitEnd != nil {
		e := *in.ExplicitEnd
		return &e
	}
	if it.DepreciationStart == nil {
		return nil
	}
	e := calendar.AddMonths(*it.DepreciationStart, in.YearsDelta*12+in.MonthsDelta)
	return &e
}

// RequiresNoChange reports whether a shared input is a no-op for commit
// accounting: keeping the current schedule with no delta and no explicit
// target. Such items count as skipped rather than updated.
func RequiresNoChange(in RevisionInput) bool {
	return in.Direction == DirectionKeep &&
		in.YearsDelta == 0 && in.MonthsDelta == 0 && in.ExplicitEnd == nil &&
		in.PhysicalCondition == "" && in.ReasonCode == "" && in.Justification == ""
}
