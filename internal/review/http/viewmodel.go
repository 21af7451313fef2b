package reviewhttp

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/review"
)

var errUnknownFilter = errors.New("unknown filter type")

type periodView struct {
	ID           int64  `json:"id"`
	CompanyID    int64  `json:"company_id"`
	Code         string `json:"code"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	ClosedAt     string `json:"closed_at,omitempty"`
	NewLifeStart string `json:"new_life_start,omitempty"`
}

type itemView struct {
	ID                 int64  `json:"id"`
	AssetNumber        string `json:"asset_number"`
	SubNumber          string `json:"sub_number"`
	Description        string `json:"description"`
	ClassCode          string `json:"class_code"`
	CostCenter         string `json:"cost_center"`
	BookValue          string `json:"book_value"`
	DepreciationStart  string `json:"depreciation_start,omitempty"`
	DepreciationEnd    string `json:"depreciation_end,omitempty"`
	OriginalLifeMonths int    `json:"original_life_months"`
	RevisedLifeMonths  *int   `json:"revised_life_months,omitempty"`
	RevisedEnd         string `json:"revised_end,omitempty"`
	PhysicalCondition  string `json:"physical_condition,omitempty"`
	Direction          string `json:"direction"`
	ReasonCode         string `json:"reason_code,omitempty"`
	Justification      string `json:"justification,omitempty"`
	Changed            bool   `json:"changed"`
	Status             string `json:"status"`
}

type previewView struct {
	ItemID         int64  `json:"item_id"`
	AssetNumber    string `json:"asset_number"`
	SubNumber      string `json:"sub_number"`
	PreviousEnd    string `json:"previous_end,omitempty"`
	NewEnd         string `json:"new_end,omitempty"`
	MonthsDiff     int    `json:"months_diff"`
	Direction      string `json:"direction"`
	NearExpiration bool   `json:"near_expiration"`
}

func toPeriodView(p review.Period) periodView {
	return periodView{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		Code:         p.Code,
		Description:  p.Description,
		Status:       string(p.Status),
		ClosedAt:     formatTime(p.ClosedAt),
		NewLifeStart: formatDate(p.NewLifeStart),
	}
}

func toPeriodViews(periods []review.Period) []periodView {
	views := make([]periodView, len(periods))
	for i, p := range periods {
		views[i] = toPeriodView(p)
	}
	return views
}

func toItemView(it review.Item) itemView {
	return itemView{
		ID:                 it.ID,
		AssetNumber:        it.AssetNumber,
		SubNumber:          it.SubNumber,
		Description:        it.Description,
		ClassCode:          it.ClassCode,
		CostCenter:         it.CostCenter,
		BookValue:          it.BookValue.String(),
		DepreciationStart:  formatDate(it.DepreciationStart),
		DepreciationEnd:    formatDate(it.DepreciationEnd),
		OriginalLifeMonths: it.OriginalLifeMonths,
		RevisedLifeMonths:  it.RevisedLifeMonths,
		RevisedEnd:         formatDate(it.RevisedEnd),
		PhysicalCondition:  it.PhysicalCondition,
		Direction:          string(it.Direction),
		ReasonCode:         it.ReasonCode,
		Justification:      it.Justification,
		Changed:            it.Changed,
		Status:             string(it.Status),
	}
}

func toItemViews(items []review.Item) []itemView {
	views := make([]itemView, len(items))
	for i, it := range items {
		views[i] = toItemView(it)
	}
	return views
}

func toPreviewViews(lines []review.PreviewLine) []previewView {
	views := make([]previewView, len(lines))
	for i, line := range lines {
		views[i] = previewView{
			ItemID:         line.ItemID,
			AssetNumber:    line.AssetNumber,
			SubNumber:      line.SubNumber,
			PreviousEnd:    formatDate(line.PreviousEnd),
			NewEnd:         formatDate(line.NewEnd),
			MonthsDiff:     line.MonthsDiff,
			Direction:      string(line.Direction),
			NearExpiration: line.NearExpiration,
		}
	}
	return views
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
