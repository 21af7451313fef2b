// Package reviewhttp exposes the review engine over a JSON API. It is the
// thin transport boundary: decode, validate, call the service, map errors.
package reviewhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/review"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

const periodsPageLimit = 100

type reviewService interface {
	ListPeriods(ctx context.Context, companyID int64, limit, offset int) ([]review.Period, error)
	GetPeriod(ctx context.Context, id int64) (review.Period, error)
	CreatePeriod(ctx context.Context, in review.CreatePeriodInput) (review.Period, error)
	SetPeriodAnchor(ctx context.Context, periodID int64, anchor time.Time) (review.Period, error)
	ClosePeriod(ctx context.Context, periodID int64) (review.Period, error)
	ScopedItems(ctx context.Context, periodID int64, rc review.ReviewerContext, query string, f review.Filter) (review.ScopeView, error)
	ReviseItem(ctx context.Context, itemID int64, in review.RevisionInput) (review.Item, error)
	PreviewMassRevision(ctx context.Context, req review.MassRevisionRequest) ([]review.PreviewLine, error)
	CommitMassRevision(ctx context.Context, req review.MassRevisionRequest) (review.RevisionResult, error)
	Delegate(ctx context.Context, periodID int64, assetNumbers []string, reviewerID int64, rc review.ReviewerContext) (review.BulkDelegationResult, error)
	Revoke(ctx context.Context, periodID int64, assetNumber string) error
}

type unitResolver interface {
	UnitMap(ctx context.Context, companyID int64) (map[string]string, error)
}

type commitQueue interface {
	EnqueueMassCommit(ctx context.Context, payload jobs.MassCommitPayload) (*asynq.TaskInfo, error)
}

// Handler wires HTTP endpoints for review periods, items, and delegations.
type Handler struct {
	logger   *slog.Logger
	service  reviewService
	units    unitResolver
	queue    commitQueue
	validate *validator.Validate
}

// NewHandler constructs a review HTTP handler.
func NewHandler(logger *slog.Logger, service reviewService, units unitResolver) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		units:    units,
		validate: validator.New(),
	}
}

// WithQueue enables the background commit endpoint.
func (h *Handler) WithQueue(queue commitQueue) *Handler {
	h.queue = queue
	return h
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.listPeriods)
		r.Post("/", h.createPeriod)
		r.Post("/{id}/anchor", h.setAnchor)
		r.Post("/{id}/close", h.closePeriod)
		r.Get("/{id}/items", h.listItems)
		r.Post("/{id}/mass-revision/preview", h.previewMassRevision)
		r.Post("/{id}/mass-revision/commit", h.commitMassRevision)
		r.Post("/{id}/mass-revision/enqueue", h.enqueueMassRevision)
		r.Post("/{id}/delegations", h.createDelegations)
		r.Delete("/{id}/delegations/{asset}", h.deleteDelegation)
	})
	r.Post("/items/{id}/revision", h.reviseItem)
}

type createPeriodRequest struct {
	CompanyID    int64  `json:"company_id" validate:"required,gt=0"`
	Code         string `json:"code" validate:"required"`
	Description  string `json:"description"`
	NewLifeStart string `json:"new_life_start" validate:"omitempty,datetime=2006-01-02"`
}

type anchorRequest struct {
	NewLifeStart string `json:"new_life_start" validate:"required,datetime=2006-01-02"`
}

type revisionRequest struct {
	Direction         string `json:"direction" validate:"required,oneof=INCREASE DECREASE KEEP"`
	YearsDelta        int    `json:"years_delta" validate:"gte=0"`
	MonthsDelta       int    `json:"months_delta" validate:"gte=0,lt=12"`
	ExplicitEnd       string `json:"explicit_end" validate:"omitempty,datetime=2006-01-02"`
	PhysicalCondition string `json:"physical_condition"`
	ReasonCode        string `json:"reason_code"`
	Justification     string `json:"justification"`
	Confirm           bool   `json:"confirm"`
}

type massRevisionRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1,dive,gt=0"`
	revisionRequest
}

type delegationRequest struct {
	AssetNumbers []string `json:"asset_numbers" validate:"required,min=1,dive,required"`
	ReviewerID   int64    `json:"reviewer_id" validate:"required,gt=0"`
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pagination := shared.NewPagination(page, periodsPageLimit, 0)
	periods, err := h.service.ListPeriods(r.Context(), companyID, pagination.PerPage, pagination.Offset())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": toPeriodViews(periods), "page": pagination.Page})
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := review.CreatePeriodInput{
		CompanyID:    req.CompanyID,
		Code:         req.Code,
		Description:  req.Description,
		NewLifeStart: parseDate(req.NewLifeStart),
	}
	period, err := h.service.CreatePeriod(r.Context(), in)
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodView(period))
}

func (h *Handler) setAnchor(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req anchorRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := h.service.SetPeriodAnchor(r.Context(), periodID, *parseDate(req.NewLifeStart))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodView(period))
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	period, err := h.service.ClosePeriod(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodView(period))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	rc, ok := shared.ReviewerFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "reviewer identity missing")
		return
	}
	filter, err := h.parseFilter(r, periodID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	view, err := h.service.ScopedItems(r.Context(), periodID, rc, r.URL.Query().Get("query"), filter)
	if err != nil {
		h.logger.Error("scoped items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"pending":  toItemViews(view.Pending),
		"reviewed": toItemViews(view.Reviewed),
	})
}

func (h *Handler) reviseItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req revisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.ReviseItem(r.Context(), itemID, toRevisionInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemView(item))
}

func (h *Handler) previewMassRevision(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req massRevisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	massReq := review.NewMassRevisionRequest(periodID, req.ItemIDs, toRevisionInput(req.revisionRequest))
	lines, err := h.service.PreviewMassRevision(r.Context(), massReq)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"request_id": massReq.ID, "lines": toPreviewViews(lines)})
}

func (h *Handler) commitMassRevision(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req massRevisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	massReq := review.NewMassRevisionRequest(periodID, req.ItemIDs, toRevisionInput(req.revisionRequest))
	result, err := h.service.CommitMassRevision(r.Context(), massReq)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// enqueueMassRevision hands the commit to the background worker. The caller
// gets the request id back and the result lands in the worker's logs and
// metrics.
func (h *Handler) enqueueMassRevision(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "background commits are not configured")
		return
	}
	var req massRevisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	massReq := review.NewMassRevisionRequest(periodID, req.ItemIDs, toRevisionInput(req.revisionRequest))
	info, err := h.queue.EnqueueMassCommit(r.Context(), jobs.NewMassCommitPayload(massReq))
	if err != nil {
		h.logger.Error("enqueue mass revision", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"request_id": massReq.ID, "task_id": info.ID})
}

func (h *Handler) createDelegations(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	rc, ok := shared.ReviewerFromContext(r.Context())
	if !ok || !rc.Supervisor {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "delegations are a supervisor action")
		return
	}
	var req delegationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Delegate(r.Context(), periodID, req.AssetNumbers, req.ReviewerID, rc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteDelegation(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	rc, ok := shared.ReviewerFromContext(r.Context())
	if !ok || !rc.Supervisor {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "delegations are a supervisor action")
		return
	}
	if err := h.service.Revoke(r.Context(), periodID, chi.URLParam(r, "asset")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseFilter builds the single facet filter from query parameters. The
// management-unit facet resolves the cost-center mapping through masterdata.
func (h *Handler) parseFilter(r *http.Request, periodID int64) (review.Filter, error) {
	q := r.URL.Query()
	switch q.Get("filter") {
	case "":
		return nil, nil
	case "cost_center":
		return review.ByCostCenter{CostCenter: q.Get("cost_center")}, nil
	case "management_unit":
		period, err := h.service.GetPeriod(r.Context(), periodID)
		if err != nil {
			return nil, err
		}
		units, err := h.units.UnitMap(r.Context(), period.CompanyID)
		if err != nil {
			return nil, err
		}
		return review.ByManagementUnit{Unit: q.Get("management_unit"), CostCenters: units}, nil
	case "class":
		return review.ByClass{ClassCode: q.Get("class")}, nil
	case "value_range":
		min, err := decimal.NewFromString(q.Get("min"))
		if err != nil {
			return nil, err
		}
		max, err := decimal.NewFromString(q.Get("max"))
		if err != nil {
			return nil, err
		}
		return review.ByValueRange{Min: min, Max: max}, nil
	case "due_within":
		return review.ByDueWithin{Months: review.NearExpirationMonths}, nil
	default:
		return nil, errUnknownFilter
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func toRevisionInput(req revisionRequest) review.RevisionInput {
	return review.RevisionInput{
		Direction:         review.ParseDirection(req.Direction),
		YearsDelta:        req.YearsDelta,
		MonthsDelta:       req.MonthsDelta,
		ExplicitEnd:       parseDate(req.ExplicitEnd),
		PhysicalCondition: req.PhysicalCondition,
		ReasonCode:        req.ReasonCode,
		Justification:     req.Justification,
		Confirmed:         req.Confirm,
	}
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil
	}
	return &t
}
