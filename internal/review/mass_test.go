package review

import (
	"testing"
	"time"
)

func TestPreviewResolvesEachItemFromItsOwnStart(t *testing.T) {
	now := date(2026, time.August, 1)
	items := []Item{
		{ID: 1, AssetNumber: "A-100", SubNumber: "0", DepreciationStart: dptr(2020, time.January, 1), DepreciationEnd: dptr(2030, time.January, 1)},
		{ID: 2, AssetNumber: "B-200", SubNumber: "0", DepreciationStart: dptr(2022, time.June, 1), DepreciationEnd: dptr(2032, time.June, 1)},
	}
	lines := PreviewMassRevision(now, items, RevisionInput{Direction: DirectionDecrease, YearsDelta: 8})
	if len(lines) != 2 {
		t.Fatalf("expected 2 preview lines got %d", len(lines))
	}
	if !lines[0].NewEnd.Equal(date(2028, time.January, 1)) {
		t.Fatalf("line 1: expected new end 2028-01-01 got %s", lines[0].NewEnd.Format(time.DateOnly))
	}
	if !lines[1].NewEnd.Equal(date(2030, time.June, 1)) {
		t.Fatalf("line 2: expected new end 2030-06-01 got %s", lines[1].NewEnd.Format(time.DateOnly))
	}
	if lines[0].MonthsDiff != -24 || lines[0].Direction != DirectionDecrease {
		t.Fatalf("line 1: expected -24 months decrease got %d %s", lines[0].MonthsDiff, lines[0].Direction)
	}
	if lines[1].MonthsDiff != -24 || lines[1].Direction != DirectionDecrease {
		t.Fatalf("line 2: expected -24 months decrease got %d %s", lines[1].MonthsDiff, lines[1].Direction)
	}
}

func TestPreviewSharedExplicitEnd(t *testing.T) {
	now := date(2026, time.August, 1)
	items := []Item{
		{ID: 1, DepreciationStart: dptr(2020, time.January, 1), DepreciationEnd: dptr(2030, time.January, 1)},
		{ID: 2, DepreciationStart: dptr(2022, time.June, 1), DepreciationEnd: dptr(2027, time.June, 1)},
	}
	lines := PreviewMassRevision(now, items, RevisionInput{
		Direction:   DirectionDecrease,
		ExplicitEnd: dptr(2028, time.January, 1),
	})
	if !lines[0].NewEnd.Equal(date(2028, time.January, 1)) || !lines[1].NewEnd.Equal(date(2028, time.January, 1)) {
		t.Fatalf("shared explicit end must apply to every line")
	}
	if lines[0].Direction != DirectionDecrease {
		t.Fatalf("line 1: expected decrease got %s", lines[0].Direction)
	}
	if lines[1].Direction != DirectionIncrease {
		t.Fatalf("line 2: end moved later, expected increase got %s", lines[1].Direction)
	}
}

func TestPreviewComparesAgainstRevisedEnd(t *testing.T) {
	now := date(2026, time.August, 1)
	items := []Item{{
		ID:                1,
		DepreciationStart: dptr(2020, time.January, 1),
		DepreciationEnd:   dptr(2030, time.January, 1),
		RevisedEnd:        dptr(2029, time.January, 1),
	}}
	lines := PreviewMassRevision(now, items, RevisionInput{Direction: DirectionDecrease, YearsDelta: 8})
	if !lines[0].PreviousEnd.Equal(date(2029, time.January, 1)) {
		t.Fatalf("previous end must be the revised end, got %s", lines[0].PreviousEnd.Format(time.DateOnly))
	}
	if lines[0].MonthsDiff != -12 {
		t.Fatalf("expected -12 months against the revised end got %d", lines[0].MonthsDiff)
	}
}

func TestPreviewFlagsNearExpiration(t *testing.T) {
	now := date(2026, time.August, 1)
	items := []Item{
		{ID: 1, DepreciationStart: dptr(2025, time.January, 1), DepreciationEnd: dptr(2035, time.January, 1)},
		{ID: 2, DepreciationStart: dptr(2018, time.January, 1), DepreciationEnd: dptr(2035, time.January, 1)},
	}
	lines := PreviewMassRevision(now, items, RevisionInput{Direction: DirectionDecrease, YearsDelta: 3})
	if !lines[0].NearExpiration {
		t.Fatalf("line 1 lands inside the window and must be flagged")
	}
	if lines[1].NearExpiration {
		t.Fatalf("line 2 ended in the past and must not be flagged")
	}
}

func TestPreviewKeepProducesNoNewEnd(t *testing.T) {
	now := date(2026, time.August, 1)
	items := []Item{{ID: 1, DepreciationEnd: dptr(2030, time.January, 1)}}
	lines := PreviewMassRevision(now, items, RevisionInput{Direction: DirectionKeep})
	if lines[0].NewEnd != nil {
		t.Fatalf("keep must not project a new end")
	}
	if lines[0].Direction != DirectionKeep || lines[0].MonthsDiff != 0 {
		t.Fatalf("keep line must be neutral, got %s %d", lines[0].Direction, lines[0].MonthsDiff)
	}
}

func TestRequiresNoChange(t *testing.T) {
	if !RequiresNoChange(RevisionInput{Direction: DirectionKeep}) {
		t.Fatalf("bare keep is a no-op")
	}
	if RequiresNoChange(RevisionInput{Direction: DirectionKeep, PhysicalCondition: "POOR"}) {
		t.Fatalf("keep with a captured condition is not a no-op")
	}
	if RequiresNoChange(RevisionInput{Direction: DirectionDecrease, YearsDelta: 3}) {
		t.Fatalf("a decrease is never a no-op")
	}
}
