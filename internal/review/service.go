package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// commitConcurrency bounds the number of in-flight per-item writes during a
// mass commit or bulk delegation. Writes are independent; ordering between
// them is not guaranteed and no item depends on another's outcome.
const commitConcurrency = 8

// Store is the persistence collaborator for the review core. The core holds
// no persistent state of its own; every write may fail independently.
type Store interface {
	GetPeriod(ctx context.Context, id int64) (Period, error)
	ListPeriods(ctx context.Context, companyID int64, limit, offset int) ([]Period, error)
	CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error)
	SetPeriodAnchor(ctx context.Context, periodID int64, anchor time.Time) (Period, error)
	ClosePeriod(ctx context.Context, periodID int64, closedAt time.Time) (Period, error)

	ListItems(ctx context.Context, periodID int64) ([]Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	GetItems(ctx context.Context, ids []int64) ([]Item, error)
	UpdateItemRevision(ctx context.Context, it Item) error

	ListDelegations(ctx context.Context, periodID int64) ([]Delegation, error)
	CreateDelegation(ctx context.Context, d Delegation) (Delegation, error)
	DeleteDelegation(ctx context.Context, periodID int64, assetNumber string) error
}

// CreatePeriodInput captures validation rules for new review periods.
type CreatePeriodInput struct {
	CompanyID    int64
	Code         string
	Description  string
	NewLifeStart *time.Time
}

// Validate ensures the create period input is coherent.
func (in CreatePeriodInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("review: company id required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("review: period code required")
	}
	return nil
}

// ScopeView is a reviewer's split of visible items, ready for display.
type ScopeView struct {
	Pending  []Item
	Reviewed []Item
}

// BulkDelegationResult reports per-asset outcomes of a bulk delegation.
type BulkDelegationResult struct {
	Total    int
	Created  int
	Errors   int
	Failures []ItemFailure
}

// Service orchestrates the review workflow against the persistence
// collaborator.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListPeriods returns paginated review periods for the company.
func (s *Service) ListPeriods(ctx context.Context, companyID int64, limit, offset int) ([]Period, error) {
	return s.store.ListPeriods(ctx, companyID, limit, offset)
}

// GetPeriod returns a single review period.
func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.store.GetPeriod(ctx, id)
}

// CreatePeriod opens a new review campaign.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	return s.store.CreatePeriod(ctx, in)
}

// SetPeriodAnchor sets the date revised durations are measured from. Required
// before any item in the period can be revised to a non-keep state.
func (s *Service) SetPeriodAnchor(ctx context.Context, periodID int64, anchor time.Time) (Period, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if period.Closed() {
		return Period{}, ErrPeriodClosed
	}
	return s.store.SetPeriodAnchor(ctx, periodID, anchor)
}

// ClosePeriod ends the campaign. Closed periods reject revisions, delegation
// changes, and comment replies.
func (s *Service) ClosePeriod(ctx context.Context, periodID int64) (Period, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if period.Closed() {
		return period, nil
	}
	return s.store.ClosePeriod(ctx, periodID, s.now())
}

// ListItems returns every item of a period without scope filtering.
func (s *Service) ListItems(ctx context.Context, periodID int64) ([]Item, error) {
	return s.store.ListItems(ctx, periodID)
}

// ScopedItems loads the period collection and resolves the reviewer's view:
// visible items split into pending and reviewed, optionally narrowed by free
// text and one facet filter. The underlying collection is never mutated.
func (s *Service) ScopedItems(ctx context.Context, periodID int64, rc ReviewerContext, query string, f Filter) (ScopeView, error) {
	items, err := s.store.ListItems(ctx, periodID)
	if err != nil {
		return ScopeView{}, err
	}
	delegations, err := s.store.ListDelegations(ctx, periodID)
	if err != nil {
		return ScopeView{}, err
	}
	scope := ResolveScope(items, delegations, rc).Search(query).Apply(s.now(), f)
	return ScopeView{Pending: scope.Pending(), Reviewed: scope.Reviewed()}, nil
}

// ReviseItem validates and persists one proposed revision. Hard rejections
// and unconfirmed soft warnings leave the stored item untouched.
func (s *Service) ReviseItem(ctx context.Context, itemID int64, in RevisionInput) (Item, error) {
	it, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	period, err := s.store.GetPeriod(ctx, it.PeriodID)
	if err != nil {
		return Item{}, err
	}
	updated, err := Validate(s.now(), period, it, in)
	if err != nil {
		return Item{}, err
	}
	if err := s.store.UpdateItemRevision(ctx, updated); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
	return updated, nil
}

// PreviewMassRevision builds the comparative preview for the request without
// touching persistence.
func (s *Service) PreviewMassRevision(ctx context.Context, req MassRevisionRequest) ([]PreviewLine, error) {
	items, err := s.loadRequestItems(ctx, req)
	if err != nil {
		return nil, err
	}
	return PreviewMassRevision(s.now(), items, req.Input), nil
}

// CommitMassRevision applies the shared revision to every selected item. Each
// item re-runs the full single-item validation; failures accumulate instead
// of aborting the batch, and passing items are written as independent
// concurrent requests with no global rollback. All validation completes
// before the first write is dispatched.
func (s *Service) CommitMassRevision(ctx context.Context, req MassRevisionRequest) (RevisionResult, error) {
	period, err := s.store.GetPeriod(ctx, req.PeriodID)
	if err != nil {
		return RevisionResult{}, err
	}
	if period.Closed() {
		return RevisionResult{}, ErrPeriodClosed
	}
	items, err := s.loadRequestItems(ctx, req)
	if err != nil {
		return RevisionResult{}, err
	}

	result := RevisionResult{Total: len(items)}
	now := s.now()
	noChange := RequiresNoChange(req.Input)

	var toWrite []Item
	for _, it := range items {
		if noChange {
			result.Skipped++
			continue
		}
		updated, err := Validate(now, period, it, req.Input)
		if err != nil {
			result.Errors++
			result.Failures = append(result.Failures, ItemFailure{ItemID: it.ID, Reason: err.Error()})
			continue
		}
		toWrite = append(toWrite, updated)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commitConcurrency)
	for _, updated := range toWrite {
		g.Go(func() error {
			if err := s.store.UpdateItemRevision(gctx, updated); err != nil {
				mu.Lock()
				result.Errors++
				result.Failures = append(result.Failures, ItemFailure{
					ItemID: updated.ID,
					Reason: fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err).Error(),
				})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Updated++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ItemID < result.Failures[j].ItemID
	})
	return result, nil
}

// Delegate assigns the given assets to a reviewer as independent per-asset
// writes. Duplicate active delegations are reported per asset, not fatal to
// the batch.
func (s *Service) Delegate(ctx context.Context, periodID int64, assetNumbers []string, reviewerID int64, rc ReviewerContext) (BulkDelegationResult, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return BulkDelegationResult{}, err
	}
	if period.Closed() {
		return BulkDelegationResult{}, ErrPeriodClosed
	}

	result := BulkDelegationResult{Total: len(assetNumbers)}
	assignedAt := s.now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commitConcurrency)
	for _, asset := range assetNumbers {
		g.Go(func() error {
			_, err := s.store.CreateDelegation(gctx, Delegation{
				PeriodID:    periodID,
				AssetNumber: asset,
				ReviewerID:  reviewerID,
				AssignedBy:  rc.ReviewerID,
				AssignedAt:  assignedAt,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors++
				result.Failures = append(result.Failures, ItemFailure{Reason: fmt.Sprintf("%s: %v", asset, err)})
				return nil
			}
			result.Created++
			return nil
		})
	}
	_ = g.Wait()
	return result, nil
}

// Revoke removes an asset's delegation within the period.
func (s *Service) Revoke(ctx context.Context, periodID int64, assetNumber string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Closed() {
		return ErrPeriodClosed
	}
	return s.store.DeleteDelegation(ctx, periodID, assetNumber)
}

func (s *Service) loadRequestItems(ctx context.Context, req MassRevisionRequest) ([]Item, error) {
	if len(req.ItemIDs) == 0 {
		return nil, errors.New("review: no items selected")
	}
	items, err := s.store.GetItems(ctx, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(items) != len(req.ItemIDs) {
		return nil, fmt.Errorf("%w: %d of %d selected items", ErrNotFound, len(req.ItemIDs)-len(items), len(req.ItemIDs))
	}
	return items, nil
}
