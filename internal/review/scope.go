package review

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/calendar"
)

// Filter narrows a reviewer's item view along exactly one facet. The variants
// are closed; Scope.Apply dispatches over them exhaustively.
type Filter interface {
	facet()
}

// ByCostCenter keeps items of one cost center.
type ByCostCenter struct{ CostCenter string }

// ByManagementUnit keeps items whose cost center belongs to the unit. The
// cost-center to management-unit mapping comes from the masterdata
// collaborator and is passed in resolved.
type ByManagementUnit struct {
	Unit        string
	CostCenters map[string]string
}

// ByClass keeps items of one asset class code.
type ByClass struct{ ClassCode string }

// ByValueRange keeps items whose book value lies in [Min, Max].
type ByValueRange struct{ Min, Max decimal.Decimal }

// ByDueWithin keeps items whose effective end falls within the next Months.
type ByDueWithin struct{ Months int }

func (ByCostCenter) facet()     {}
func (ByManagementUnit) facet() {}
func (ByClass) facet()          {}
func (ByValueRange) facet()     {}
func (ByDueWithin) facet()      {}

// Scope is a reviewer's filtered view over a period's item collection.
// Resolving and filtering never mutate the underlying collection; every
// operation returns fresh slices.
type Scope struct {
	Reviewer ReviewerContext
	Items    []Item
}

// ResolveScope computes the items visible to the reviewer: those with an
// active delegation naming them. Supervisors see the whole collection.
func ResolveScope(items []Item, delegations []Delegation, rc ReviewerContext) Scope {
	if rc.Supervisor {
		return Scope{Reviewer: rc, Items: append([]Item(nil), items...)}
	}
	assigned := make(map[string]bool, len(delegations))
	for _, d := range delegations {
		if d.ReviewerID == rc.ReviewerID {
			assigned[d.AssetNumber] = true
		}
	}
	visible := make([]Item, 0, len(items))
	for _, it := range items {
		if assigned[it.AssetNumber] {
			visible = append(visible, it)
		}
	}
	return Scope{Reviewer: rc, Items: visible}
}

// Pending returns the visible items still awaiting review.
func (s Scope) Pending() []Item {
	return s.filter(func(it Item) bool { return !IsReviewed(it) })
}

// Reviewed returns the visible items already handled.
func (s Scope) Reviewed() []Item {
	return s.filter(func(it Item) bool { return IsReviewed(it) })
}

// Search narrows the scope by free text: substring match on asset number,
// description, or cost center, or an exact book-value match when the query
// parses as a number.
func (s Scope) Search(query string) Scope {
	query = strings.TrimSpace(query)
	if query == "" {
		return s
	}
	needle := strings.ToLower(query)
	value, valueErr := decimal.NewFromString(query)
	return s.narrow(func(it Item) bool {
		if strings.Contains(strings.ToLower(it.AssetNumber), needle) ||
			strings.Contains(strings.ToLower(it.Description), needle) ||
			strings.Contains(strings.ToLower(it.CostCenter), needle) {
			return true
		}
		return valueErr == nil && it.BookValue.Equal(value)
	})
}

// Apply narrows the scope by one facet filter. A nil filter keeps the scope
// unchanged.
func (s Scope) Apply(now time.Time, f Filter) Scope {
	if f == nil {
		return s
	}
	switch f := f.(type) {
	case ByCostCenter:
		return s.narrow(func(it Item) bool { return it.CostCenter == f.CostCenter })
	case ByManagementUnit:
		return s.narrow(func(it Item) bool { return f.CostCenters[it.CostCenter] == f.Unit })
	case ByClass:
		return s.narrow(func(it Item) bool { return it.ClassCode == f.ClassCode })
	case ByValueRange:
		return s.narrow(func(it Item) bool {
			return it.BookValue.GreaterThanOrEqual(f.Min) && it.BookValue.LessThanOrEqual(f.Max)
		})
	case ByDueWithin:
		return s.narrow(func(it Item) bool {
			due := calendar.MonthsUntil(now, it.CurrentEnd())
			return due >= 0 && due <= f.Months
		})
	default:
		return s
	}
}

func (s Scope) narrow(keep func(Item) bool) Scope {
	return Scope{Reviewer: s.Reviewer, Items: s.filter(keep)}
}

func (s Scope) filter(keep func(Item) bool) []Item {
	out := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
