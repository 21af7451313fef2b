package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/review"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReviewMassCommit applies a mass-revision commit out of band.
	TaskReviewMassCommit = "review:mass_commit"
	// TaskReviewExpiryScan counts near-expiration items per open period.
	TaskReviewExpiryScan = "review:expiry_scan"
)

// MassCommitPayload carries a mass-revision request into the worker. The
// request itself is transient; only this payload crosses the queue.
type MassCommitPayload struct {
	RequestID         uuid.UUID `json:"request_id"`
	PeriodID          int64     `json:"period_id"`
	ItemIDs           []int64   `json:"item_ids"`
	Direction         string    `json:"direction"`
	YearsDelta        int       `json:"years_delta"`
	MonthsDelta       int       `json:"months_delta"`
	ExplicitEnd       string    `json:"explicit_end,omitempty"`
	PhysicalCondition string    `json:"physical_condition,omitempty"`
	ReasonCode        string    `json:"reason_code,omitempty"`
	Justification     string    `json:"justification,omitempty"`
	Confirmed         bool      `json:"confirmed"`
}

// NewMassCommitPayload flattens a mass-revision request for the queue.
func NewMassCommitPayload(req review.MassRevisionRequest) MassCommitPayload {
	var explicitEnd string
	if req.Input.ExplicitEnd != nil {
		explicitEnd = req.Input.ExplicitEnd.Format(time.DateOnly)
	}
	return MassCommitPayload{
		RequestID:         req.ID,
		PeriodID:          req.PeriodID,
		ItemIDs:           req.ItemIDs,
		Direction:         string(req.Input.Direction),
		YearsDelta:        req.Input.YearsDelta,
		MonthsDelta:       req.Input.MonthsDelta,
		ExplicitEnd:       explicitEnd,
		PhysicalCondition: req.Input.PhysicalCondition,
		ReasonCode:        req.Input.ReasonCode,
		Justification:     req.Input.Justification,
		Confirmed:         req.Input.Confirmed,
	}
}

// Request reconstructs the mass-revision request from the payload.
func (p MassCommitPayload) Request() review.MassRevisionRequest {
	var explicitEnd *time.Time
	if p.ExplicitEnd != "" {
		if t, err := time.Parse(time.DateOnly, p.ExplicitEnd); err == nil {
			explicitEnd = &t
		}
	}
	return review.MassRevisionRequest{
		ID:       p.RequestID,
		PeriodID: p.PeriodID,
		ItemIDs:  p.ItemIDs,
		Input: review.RevisionInput{
			Direction:         review.ParseDirection(p.Direction),
			YearsDelta:        p.YearsDelta,
			MonthsDelta:       p.MonthsDelta,
			ExplicitEnd:       explicitEnd,
			PhysicalCondition: p.PhysicalCondition,
			ReasonCode:        p.ReasonCode,
			Justification:     p.Justification,
			Confirmed:         p.Confirmed,
		},
	}
}

// NewMassCommitTask constructs an Asynq task for an out-of-band commit.
func NewMassCommitTask(payload MassCommitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReviewMassCommit, data), nil
}

// ExpiryScanPayload scopes the nightly expiry scan to one company.
type ExpiryScanPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewExpiryScanTask constructs an Asynq task for the expiry scan.
func NewExpiryScanTask(payload ExpiryScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReviewExpiryScan, data), nil
}
