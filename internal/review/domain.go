package review

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ReviewStatus is the closed set of item review states. Raw collaborator
// records are parsed into this enum exactly once on load; the core never
// re-inspects free-text status values.
type ReviewStatus string

const (
	StatusPending   ReviewStatus = "PENDING"
	StatusReviewed  ReviewStatus = "REVIEWED"
	StatusApproved  ReviewStatus = "APPROVED"
	StatusCompleted ReviewStatus = "COMPLETED"
	StatusReverted  ReviewStatus = "REVERTED"
)

// Direction classifies a useful-life revision against the original schedule.
type Direction string

const (
	DirectionIncrease Direction = "INCREASE"
	DirectionDecrease Direction = "DECREASE"
	DirectionKeep     Direction = "KEEP"
)

// PeriodStatus enumerates the review campaign lifecycle.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// NearExpirationMonths is the window, in complete months from now, inside
// which an asset counts as near expiration and justifications become
// mandatory.
const NearExpirationMonths = 18

// Period is one useful-life review campaign for a company branch. Closed
// periods are read-only.
type Period struct {
	ID           int64
	CompanyID    int64
	Code         string
	Description  string
	Status       PeriodStatus
	ClosedAt     *time.Time
	NewLifeStart *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Closed reports whether the period no longer accepts revisions, delegation
// changes, or comment replies.
func (p Period) Closed() bool {
	return p.Status == PeriodStatusClosed || p.ClosedAt != nil
}

// Item is one fixed-asset depreciation record inside a period. Sub-items of
// the same asset share an asset number and differ by sub-number.
type Item struct {
	ID                 int64
	PeriodID           int64
	AssetNumber        string
	SubNumber          string
	Description        string
	ClassCode          string
	CostCenter         string
	BookValue          decimal.Decimal
	DepreciationStart  *time.Time
	DepreciationEnd    *time.Time
	OriginalLifeMonths int
	OriginalLifeYears  int
	RevisedLifeMonths  *int
	RevisedEnd         *time.Time
	PhysicalCondition  string
	Direction          Direction
	ReasonCode         string
	Justification      string
	Changed            bool
	Status             ReviewStatus
	UpdatedAt          time.Time
}

// CurrentEnd returns the effective depreciation end: the revised end when one
// exists, otherwise the original.
func (it Item) CurrentEnd() *time.Time {
	if it.RevisedEnd != nil {
		return it.RevisedEnd
	}
	return it.DepreciationEnd
}

// Delegation assigns one item's review responsibility to a reviewer within a
// period. An asset carries at most one active delegation per period.
type Delegation struct {
	ID          int64
	PeriodID    int64
	AssetNumber string
	ReviewerID  int64
	AssignedBy  int64
	AssignedAt  time.Time
}

// ReviewerContext identifies the acting reviewer. It is passed explicitly into
// the scope resolver and comment workflow; nothing in the core reads ambient
// session state.
type ReviewerContext struct {
	ReviewerID int64
	Supervisor bool
}

// RevisionInput is the proposed change for a single item.
type RevisionInput struct {
	Direction         Direction
	YearsDelta        int
	MonthsDelta       int
	ExplicitEnd       *time.Time
	PhysicalCondition string
	ReasonCode        string
	Justification     string
	// Confirmed acknowledges soft warnings (drastic reduction, past end
	// date) raised on a previous submission of the same input.
	Confirmed bool
}

// MassRevisionRequest applies one shared revision to a set of items. It lives
// only for the duration of one preview/confirm cycle and is never persisted.
type MassRevisionRequest struct {
	ID       uuid.UUID
	PeriodID int64
	ItemIDs  []int64
	Input    RevisionInput
}

// NewMassRevisionRequest assigns a request identifier used to correlate the
// preview with the eventual commit.
func NewMassRevisionRequest(periodID int64, itemIDs []int64, input RevisionInput) MassRevisionRequest {
	return MassRevisionRequest{ID: uuid.New(), PeriodID: periodID, ItemIDs: itemIDs, Input: input}
}

// PreviewLine is one row of the comparative mass-revision preview.
type PreviewLine struct {
	ItemID         int64
	AssetNumber    string
	SubNumber      string
	PreviousEnd    *time.Time
	NewEnd         *time.Time
	MonthsDiff     int
	Direction      Direction
	NearExpiration bool
}

// ItemFailure records why one item of a mass revision was rejected.
type ItemFailure struct {
	ItemID int64
	Reason string
}

// RevisionResult reports the per-item outcome of a mass-revision commit.
// Partial success is expected and surfaced, never hidden.
type RevisionResult struct {
	Total    int
	Updated  int
	Skipped  int
	Errors   int
	Failures []ItemFailure
}

// Sentinel errors of the review core. Hard rejections leave the item
// untouched; the reason is surfaced verbatim to the caller.
var (
	ErrMissingPeriodAnchor   = errors.New("review: period has no new-life start date")
	ErrInconsistentDirection = errors.New("review: resolved schedule contradicts the requested direction")
	ErrJustificationRequired = errors.New("review: justification text is required")
	ErrPeriodClosed          = errors.New("review: period is closed")
	ErrDelegationExists      = errors.New("review: asset already delegated in this period")
	ErrNotFound              = errors.New("review: not found")
)

// ErrCollaboratorUnavailable wraps transport-level persistence failures. The
// core never retries these; the caller offers a manual retry.
var ErrCollaboratorUnavailable = errors.New("review: persistence collaborator unavailable")

// ConfirmationReason names a soft warning the operator must acknowledge.
type ConfirmationReason string

const (
	ConfirmDrasticReduction ConfirmationReason = "DRASTIC_REDUCTION"
	ConfirmPastEndDate      ConfirmationReason = "PAST_END_DATE"
)

// ConfirmationRequiredError is a soft rejection: the same input resubmitted
// with Confirmed set is accepted.
type ConfirmationRequiredError struct {
	Reasons []ConfirmationReason
}

func (e *ConfirmationRequiredError) Error() string {
	labels := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		labels[i] = string(r)
	}
	return fmt.Sprintf("review: operator confirmation required (%s)", strings.Join(labels, ", "))
}

// ParseReviewStatus folds a raw collaborator status value onto the closed
// enum. Matching is case- and diacritics-insensitive so source-system labels
// such as "Concluído" or "Aprovado" resolve without locale-aware comparisons
// leaking into the core. Unknown values classify as pending.
func ParseReviewStatus(raw string) ReviewStatus {
	switch foldStatus(raw) {
	case "reviewed", "revisado", "revisada":
		return StatusReviewed
	case "approved", "aprovado", "aprovada":
		return StatusApproved
	case "completed", "concluido", "concluida":
		return StatusCompleted
	case "reverted", "revertido", "revertida", "estornado":
		return StatusReverted
	default:
		return StatusPending
	}
}

var statusFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldStatus(raw string) string {
	folded, _, err := transform.String(statusFold, strings.TrimSpace(raw))
	if err != nil {
		folded = raw
	}
	return strings.ToLower(folded)
}

// ParseDirection maps a wire direction token onto the enum, defaulting to
// Keep for unknown values.
func ParseDirection(raw string) Direction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(DirectionIncrease):
		return DirectionIncrease
	case string(DirectionDecrease):
		return DirectionDecrease
	default:
		return DirectionKeep
	}
}
