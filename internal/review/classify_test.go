package review

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dptr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestIsReviewedTerminalStatuses(t *testing.T) {
	for _, status := range []ReviewStatus{StatusReviewed, StatusApproved, StatusCompleted} {
		if !IsReviewed(Item{Status: status}) {
			t.Fatalf("status %s should count as reviewed", status)
		}
	}
	if IsReviewed(Item{Status: StatusPending}) {
		t.Fatalf("pending item without activity should not count as reviewed")
	}
}

func TestIsReviewedActivityMarkers(t *testing.T) {
	if !IsReviewed(Item{Status: StatusPending, Changed: true}) {
		t.Fatalf("changed item should count as reviewed")
	}
	if !IsReviewed(Item{Status: StatusPending, Justification: "damaged casing"}) {
		t.Fatalf("justified item should count as reviewed")
	}
	if !IsReviewed(Item{Status: StatusPending, PhysicalCondition: "POOR"}) {
		t.Fatalf("item with condition should count as reviewed")
	}
}

func TestIsReviewedRevertedAlwaysPending(t *testing.T) {
	it := Item{
		Status:            StatusReverted,
		Changed:           true,
		Justification:     "previous cycle",
		PhysicalCondition: "GOOD",
	}
	if IsReviewed(it) {
		t.Fatalf("reverted item must be pending regardless of other flags")
	}
}

func TestNearExpiration(t *testing.T) {
	now := date(2026, time.August, 1)
	cases := []struct {
		name string
		end  *time.Time
		want bool
	}{
		{"inside window", dptr(2028, time.January, 1), true},
		{"window boundary", dptr(2028, time.February, 1), true},
		{"beyond window", dptr(2028, time.March, 1), false},
		{"already past", dptr(2026, time.July, 1), false},
		{"no end date", nil, false},
	}
	for _, tc := range cases {
		got := NearExpiration(now, Item{DepreciationEnd: tc.end})
		if got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestNearExpirationUsesRevisedEnd(t *testing.T) {
	now := date(2026, time.August, 1)
	it := Item{
		DepreciationEnd: dptr(2040, time.January, 1),
		RevisedEnd:      dptr(2027, time.March, 1),
	}
	if !NearExpiration(now, it) {
		t.Fatalf("revised end inside window should flag the item")
	}
}

func TestGroupByAsset(t *testing.T) {
	items := []Item{
		{ID: 1, AssetNumber: "A-100", SubNumber: "0"},
		{ID: 2, AssetNumber: "A-100", SubNumber: "1"},
		{ID: 3, AssetNumber: "B-200", SubNumber: "0"},
	}
	groups := GroupByAsset(items)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups got %d", len(groups))
	}
	if len(groups["A-100"]) != 2 {
		t.Fatalf("expected 2 sub-items for A-100 got %d", len(groups["A-100"]))
	}
	if len(groups["B-200"]) != 1 {
		t.Fatalf("expected 1 sub-item for B-200 got %d", len(groups["B-200"]))
	}
}

func TestFullyDepreciated(t *testing.T) {
	zero := decimal.Zero
	hundred := decimal.NewFromInt(100)
	cases := []struct {
		name  string
		group []Item
		want  bool
	}{
		{
			"all zero with main record",
			[]Item{{SubNumber: "0", BookValue: zero}, {SubNumber: "1", BookValue: zero}},
			true,
		},
		{
			"residual value on sub-item",
			[]Item{{SubNumber: "0", BookValue: zero}, {SubNumber: "1", BookValue: hundred}},
			false,
		},
		{
			"zero values but no main record",
			[]Item{{SubNumber: "1", BookValue: zero}, {SubNumber: "2", BookValue: zero}},
			false,
		},
		{"empty group", nil, false},
	}
	for _, tc := range cases {
		if got := FullyDepreciated(tc.group); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseReviewStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want ReviewStatus
	}{
		{"REVIEWED", StatusReviewed},
		{"revisado", StatusReviewed},
		{"Aprovado", StatusApproved},
		{"Concluído", StatusCompleted},
		{"concluido", StatusCompleted},
		{"Estornado", StatusReverted},
		{" reverted ", StatusReverted},
		{"", StatusPending},
		{"whatever", StatusPending},
	}
	for _, tc := range cases {
		if got := ParseReviewStatus(tc.raw); got != tc.want {
			t.Fatalf("ParseReviewStatus(%q): expected %s got %s", tc.raw, tc.want, got)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("increase") != DirectionIncrease {
		t.Fatalf("lowercase increase should parse")
	}
	if ParseDirection(" DECREASE ") != DirectionDecrease {
		t.Fatalf("padded decrease should parse")
	}
	if ParseDirection("sideways") != DirectionKeep {
		t.Fatalf("unknown token should default to keep")
	}
}
