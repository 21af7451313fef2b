package review

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu          sync.Mutex
	periods     map[int64]Period
	items       map[int64]Item
	delegations map[string]Delegation
	nextDelegID int64

	updateErr    error
	updateErrFor map[int64]error
	updateCalls  int
}

func newMockStore() *mockStore {
	return &mockStore{
		periods:     make(map[int64]Period),
		items:       make(map[int64]Item),
		delegations: make(map[string]Delegation),
		nextDelegID: 1,
	}
}

func delegKey(periodID int64, asset string) string {
	return strconv.FormatInt(periodID, 10) + "|" + asset
}

func (m *mockStore) GetPeriod(ctx context.Context, id int64) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return Period{}, ErrNotFound
	}
	return p, nil
}

func (m *mockStore) ListPeriods(ctx context.Context, companyID int64, limit, offset int) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Period{
		ID:           int64(len(m.periods) + 1),
		CompanyID:    in.CompanyID,
		Code:         in.Code,
		Description:  in.Description,
		Status:       PeriodStatusOpen,
		NewLifeStart: in.NewLifeStart,
	}
	m.periods[p.ID] = p
	return p, nil
}

func (m *mockStore) SetPeriodAnchor(ctx context.Context, periodID int64, anchor time.Time) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok {
		return Period{}, ErrNotFound
	}
	p.NewLifeStart = &anchor
	m.periods[periodID] = p
	return p, nil
}

func (m *mockStore) ClosePeriod(ctx context.Context, periodID int64, closedAt time.Time) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok {
		return Period{}, ErrNotFound
	}
	p.Status = PeriodStatusClosed
	p.ClosedAt = &closedAt
	m.periods[periodID] = p
	return p, nil
}

func (m *mockStore) ListItems(ctx context.Context, periodID int64) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, it := range m.items {
		if it.PeriodID == periodID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockStore) GetItem(ctx context.Context, id int64) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (m *mockStore) GetItems(ctx context.Context, ids []int64) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateItemRevision(ctx context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if err, ok := m.updateErrFor[it.ID]; ok {
		return err
	}
	if _, ok := m.items[it.ID]; !ok {
		return ErrNotFound
	}
	m.items[it.ID] = it
	return nil
}

func (m *mockStore) ListDelegations(ctx context.Context, periodID int64) ([]Delegation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Delegation
	for _, d := range m.delegations {
		if d.PeriodID == periodID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) CreateDelegation(ctx context.Context, d Delegation) (Delegation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := delegKey(d.PeriodID, d.AssetNumber)
	if _, ok := m.delegations[key]; ok {
		return Delegation{}, ErrDelegationExists
	}
	d.ID = m.nextDelegID
	m.nextDelegID++
	m.delegations[key] = d
	return d, nil
}

func (m *mockStore) DeleteDelegation(ctx context.Context, periodID int64, assetNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := delegKey(periodID, assetNumber)
	if _, ok := m.delegations[key]; !ok {
		return ErrNotFound
	}
	delete(m.delegations, key)
	return nil
}

func fixedNow() time.Time {
	return date(2026, time.August, 1)
}

func newTestService(store *mockStore) *Service {
	svc := NewService(store)
	svc.WithNow(fixedNow)
	return svc
}

func seedPeriod(store *mockStore, anchor *time.Time) Period {
	p := Period{ID: 1, CompanyID: 1, Code: "2026-REV", Status: PeriodStatusOpen, NewLifeStart: anchor}
	store.periods[p.ID] = p
	return p
}

func seedItem(store *mockStore, id int64, lifeMonths int) Item {
	it := Item{
		ID:                 id,
		PeriodID:           1,
		AssetNumber:        "A-" + strconv.FormatInt(id, 10),
		SubNumber:          "0",
		DepreciationStart:  dptr(2020, time.January, 1),
		DepreciationEnd:    dptr(2030, time.January, 1),
		OriginalLifeMonths: lifeMonths,
		Status:             StatusPending,
	}
	store.items[id] = it
	return it
}

func TestCommitMassRevisionPartialFailure(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	for id := int64(1); id <= 5; id++ {
		seedItem(store, id, 120)
	}
	// Item 3 is already short-lived; shortening to 96 total months would
	// lengthen it, which contradicts the requested decrease.
	short := store.items[3]
	short.OriginalLifeMonths = 24
	store.items[3] = short

	svc := newTestService(store)
	req := NewMassRevisionRequest(1, []int64{1, 2, 3, 4, 5}, RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "fleet downgrade after audit",
	})
	result, err := svc.CommitMassRevision(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, int64(3), result.Failures[0].ItemID)
	assert.Contains(t, result.Failures[0].Reason, "direction")

	assert.True(t, store.items[1].Changed)
	assert.False(t, store.items[3].Changed, "failed item must stay untouched")
}

func TestCommitMassRevisionConfirmationFoldsIntoFailures(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	for id := int64(1); id <= 2; id++ {
		it := seedItem(store, id, 120)
		it.DepreciationStart = dptr(2024, time.January, 1)
		it.DepreciationEnd = dptr(2034, time.January, 1)
		store.items[id] = it
	}

	svc := newTestService(store)
	input := RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "line decommissioned ahead of plan",
	}
	result, err := svc.CommitMassRevision(context.Background(), NewMassRevisionRequest(1, []int64{1, 2}, input))
	require.NoError(t, err, "confirmation rejections stay per item")
	var confirm *ConfirmationRequiredError
	assert.False(t, errors.As(err, &confirm))

	assert.Equal(t, 2, result.Errors)
	require.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0].Reason, "confirmation required")
	assert.Equal(t, 0, store.updateCalls, "unconfirmed commit must not write")

	input.Confirmed = true
	result, err = svc.CommitMassRevision(context.Background(), NewMassRevisionRequest(1, []int64{1, 2}, input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Errors)
}

func TestCommitMassRevisionNoChangeSkipsAll(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	seedItem(store, 1, 120)
	seedItem(store, 2, 120)

	svc := newTestService(store)
	req := NewMassRevisionRequest(1, []int64{1, 2}, RevisionInput{Direction: DirectionKeep})
	result, err := svc.CommitMassRevision(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, store.updateCalls, "no-op commit must not write")
}

func TestCommitMassRevisionWriteFailureIsCounted(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	seedItem(store, 1, 120)
	seedItem(store, 2, 120)
	store.updateErrFor = map[int64]error{2: errors.New("connection reset")}

	svc := newTestService(store)
	req := NewMassRevisionRequest(1, []int64{1, 2}, RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "fleet downgrade after audit",
	})
	result, err := svc.CommitMassRevision(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, int64(2), result.Failures[0].ItemID)
	assert.Contains(t, result.Failures[0].Reason, "collaborator unavailable")
}

func TestCommitMassRevisionClosedPeriod(t *testing.T) {
	store := newMockStore()
	p := seedPeriod(store, dptr(2025, time.January, 1))
	p.Status = PeriodStatusClosed
	store.periods[p.ID] = p
	seedItem(store, 1, 120)

	svc := newTestService(store)
	req := NewMassRevisionRequest(1, []int64{1}, RevisionInput{Direction: DirectionKeep})
	_, err := svc.CommitMassRevision(context.Background(), req)
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestCommitMassRevisionMissingItems(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	seedItem(store, 1, 120)

	svc := newTestService(store)
	req := NewMassRevisionRequest(1, []int64{1, 99}, RevisionInput{Direction: DirectionKeep})
	_, err := svc.CommitMassRevision(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviseItemPersistsValidRevision(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	seedItem(store, 1, 120)

	svc := newTestService(store)
	updated, err := svc.ReviseItem(context.Background(), 1, RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "heavy wear reported on inspection",
	})
	require.NoError(t, err)
	assert.Equal(t, 36, *updated.RevisedLifeMonths)
	assert.True(t, store.items[1].Changed)
}

func TestReviseItemWrapsWriteFailure(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	seedItem(store, 1, 120)
	store.updateErr = errors.New("tcp timeout")

	svc := newTestService(store)
	_, err := svc.ReviseItem(context.Background(), 1, RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "heavy wear reported on inspection",
	})
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
}

func TestReviseItemSoftWarningLeavesStoreUntouched(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	it := seedItem(store, 1, 120)
	start := date(2024, time.January, 1)
	it.DepreciationStart = &start
	store.items[1] = it

	svc := newTestService(store)
	_, err := svc.ReviseItem(context.Background(), 1, RevisionInput{
		Direction:     DirectionDecrease,
		YearsDelta:    3,
		Justification: "structural damage after flooding",
	})
	var confirm *ConfirmationRequiredError
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, 0, store.updateCalls)
}

func TestDelegateReportsDuplicates(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	store.delegations[delegKey(1, "A-100")] = Delegation{ID: 1, PeriodID: 1, AssetNumber: "A-100", ReviewerID: 5}

	svc := newTestService(store)
	result, err := svc.Delegate(context.Background(), 1, []string{"A-100", "B-200"}, 7, ReviewerContext{ReviewerID: 2, Supervisor: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "A-100")
}

func TestRevokeClosedPeriod(t *testing.T) {
	store := newMockStore()
	p := seedPeriod(store, nil)
	closedAt := fixedNow()
	p.ClosedAt = &closedAt
	store.periods[p.ID] = p

	svc := newTestService(store)
	err := svc.Revoke(context.Background(), 1, "A-100")
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestClosePeriodIsIdempotent(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, nil)

	svc := newTestService(store)
	first, err := svc.ClosePeriod(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, first.Closed())

	second, err := svc.ClosePeriod(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.ClosedAt, second.ClosedAt)
}

func TestSetPeriodAnchorClosedPeriod(t *testing.T) {
	store := newMockStore()
	p := seedPeriod(store, nil)
	p.Status = PeriodStatusClosed
	store.periods[p.ID] = p

	svc := newTestService(store)
	_, err := svc.SetPeriodAnchor(context.Background(), 1, date(2025, time.January, 1))
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestScopedItemsSplitsByDelegation(t *testing.T) {
	store := newMockStore()
	seedPeriod(store, dptr(2025, time.January, 1))
	a := seedItem(store, 1, 120)
	a.AssetNumber = "A-100"
	store.items[1] = a
	b := seedItem(store, 2, 120)
	b.AssetNumber = "B-200"
	b.Status = StatusReviewed
	store.items[2] = b
	store.delegations[delegKey(1, "A-100")] = Delegation{ID: 1, PeriodID: 1, AssetNumber: "A-100", ReviewerID: 7}
	store.delegations[delegKey(1, "B-200")] = Delegation{ID: 2, PeriodID: 1, AssetNumber: "B-200", ReviewerID: 7}

	svc := newTestService(store)
	view, err := svc.ScopedItems(context.Background(), 1, ReviewerContext{ReviewerID: 7}, "", nil)
	require.NoError(t, err)
	require.Len(t, view.Pending, 1)
	require.Len(t, view.Reviewed, 1)
	assert.Equal(t, "A-100", view.Pending[0].AssetNumber)
	assert.Equal(t, "B-200", view.Reviewed[0].AssetNumber)
}

func TestCreatePeriodValidatesInput(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.CreatePeriod(context.Background(), CreatePeriodInput{CompanyID: 1})
	assert.Error(t, err)

	p, err := svc.CreatePeriod(context.Background(), CreatePeriodInput{CompanyID: 1, Code: "2026-REV"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, p.Status)
}
