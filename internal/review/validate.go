package review

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/calendar"
)

// ResolveSchedule derives the revised life from a proposed input. The two
// representations stay synchronized in both directions: an explicit end date
// is converted back to whole months from the period anchor, a years+months
// delta is projected forward onto an end date. Keep yields no override at
// all.
func ResolveSchedule(period Period, in RevisionInput) (months *int, end *time.Time, err error) {
	if in.Direction == DirectionKeep {
		return nil, nil, nil
	}
	if period.NewLifeStart == nil {
		return nil, nil, ErrMissingPeriodAnchor
	}
	if in.ExplicitEnd != nil {
		m, ok := calendar.MonthsBetween(period.NewLifeStart, in.ExplicitEnd)
		if !ok {
			return nil, nil, ErrMissingPeriodAnchor
		}
		e := *in.ExplicitEnd
		return &m, &e, nil
	}
	m := in.YearsDelta*12 + in.MonthsDelta
	e := calendar.AddMonths(*period.NewLifeStart, m)
	return &m, &e, nil
}

// Validate applies one proposed revision to an item and returns the updated
// item value, or a typed rejection. The input item is never mutated. Soft
// warnings (drastic reduction, past end date) come back as a
// *ConfirmationRequiredError until the caller resubmits with Confirmed set;
// every other error is a hard rejection.
func Validate(now time.Time, period Period, it Item, in RevisionInput) (Item, error) {
	if period.Closed() {
		return Item{}, ErrPeriodClosed
	}

	months, end, err := ResolveSchedule(period, in)
	if err != nil {
		return Item{}, err
	}

	if in.Direction != DirectionKeep {
		if err := checkDirection(it, in.Direction, end); err != nil {
			return Item{}, err
		}
		if in.Direction == DirectionDecrease && in.Justification == "" {
			return Item{}, ErrJustificationRequired
		}
		if due := calendar.MonthsUntil(now, end); due >= 0 && due <= NearExpirationMonths && in.Justification == "" {
			return Item{}, ErrJustificationRequired
		}
		if !in.Confirmed {
			if reasons := softWarnings(now, it, in.Direction, end); len(reasons) > 0 {
				return Item{}, &ConfirmationRequiredError{Reasons: reasons}
			}
		}
	}

	updated := it
	updated.Direction = in.Direction
	updated.RevisedLifeMonths = months
	updated.RevisedEnd = end
	updated.PhysicalCondition = in.PhysicalCondition
	updated.ReasonCode = in.ReasonCode
	updated.Justification = in.Justification
	if revisionDiffers(it, updated) {
		updated.Changed = true
	}
	return updated, nil
}

// checkDirection enforces consistency between the requested direction and the
// schedule it resolves to: a decrease must shorten the total life, or keep the
// month count while moving the end date strictly earlier. Increase is the
// mirror image.
func checkDirection(it Item, dir Direction, end *time.Time) error {
	totalNew, ok := calendar.MonthsBetween(it.DepreciationStart, end)
	if !ok {
		return ErrInconsistentDirection
	}
	original := it.OriginalLifeMonths
	if original == 0 {
		original = it.OriginalLifeYears * 12
	}
	prev := it.CurrentEnd()
	switch dir {
	case DirectionDecrease:
		if totalNew < original {
			return nil
		}
		if totalNew == original && prev != nil && end.Before(*prev) {
			return nil
		}
	case DirectionIncrease:
		if totalNew > original {
			return nil
		}
		if totalNew == original && prev != nil && end.After(*prev) {
			return nil
		}
	}
	return ErrInconsistentDirection
}

func softWarnings(now time.Time, it Item, dir Direction, end *time.Time) []ConfirmationReason {
	var reasons []ConfirmationReason
	if dir == DirectionDecrease && drasticReduction(it, end) {
		reasons = append(reasons, ConfirmDrasticReduction)
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if end != nil && end.Before(monthStart) {
		reasons = append(reasons, ConfirmPastEndDate)
	}
	return reasons
}

// drasticReduction reports a cut of more than half the original duration.
func drasticReduction(it Item, end *time.Time) bool {
	totalNew, ok := calendar.MonthsBetween(it.DepreciationStart, end)
	if !ok {
		return false
	}
	original := it.OriginalLifeMonths
	if original == 0 {
		original = it.OriginalLifeYears * 12
	}
	return original > 0 && totalNew*2 < original
}

// revisionDiffers compares the fields a revision may touch. Re-validating an
// already-applied revision with identical parameters reports no difference,
// leaving the changed flag as it was.
func revisionDiffers(before, after Item) bool {
	if before.PhysicalCondition != after.PhysicalCondition {
		return true
	}
	if before.ReasonCode != after.ReasonCode {
		return true
	}
	return !equalMonths(before.RevisedLifeMonths, after.RevisedLifeMonths)
}

func equalMonths(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
