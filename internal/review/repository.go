package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists review periods, items, and delegations in PostgreSQL.
// Raw status values are folded onto the ReviewStatus enum here, at the
// boundary, so the core never re-parses free text.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const periodColumns = `id, company_id, code, description, status, closed_at, new_life_start, created_at, updated_at`

// GetPeriod fetches one review period.
func (r *Repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	if r == nil || r.pool == nil {
		return Period{}, fmt.Errorf("review: repository not initialised")
	}
	query := `SELECT ` + periodColumns + ` FROM review_periods WHERE id = $1`
	period, err := scanPeriod(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("%w: period %d", ErrNotFound, id)
		}
		return Period{}, err
	}
	return period, nil
}

// ListPeriods returns paginated periods for a company, newest first.
func (r *Repository) ListPeriods(ctx context.Context, companyID int64, limit, offset int) ([]Period, error) {
	query := `SELECT ` + periodColumns + ` FROM review_periods
		WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// CreatePeriod inserts a new open review period.
func (r *Repository) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	query := `INSERT INTO review_periods (company_id, code, description, status, new_life_start)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + periodColumns
	return scanPeriod(r.pool.QueryRow(ctx, query,
		in.CompanyID, in.Code, in.Description, PeriodStatusOpen, dateOrNull(in.NewLifeStart)))
}

// SetPeriodAnchor updates the new-life start date of an open period.
func (r *Repository) SetPeriodAnchor(ctx context.Context, periodID int64, anchor time.Time) (Period, error) {
	query := `UPDATE review_periods SET new_life_start = $2, updated_at = now()
		WHERE id = $1 RETURNING ` + periodColumns
	period, err := scanPeriod(r.pool.QueryRow(ctx, query, periodID, pgtype.Date{Time: anchor, Valid: true}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("%w: period %d", ErrNotFound, periodID)
		}
		return Period{}, err
	}
	return period, nil
}

// ClosePeriod stamps the closure timestamp and flips the status.
func (r *Repository) ClosePeriod(ctx context.Context, periodID int64, closedAt time.Time) (Period, error) {
	query := `UPDATE review_periods SET status = $2, closed_at = $3, updated_at = now()
		WHERE id = $1 RETURNING ` + periodColumns
	period, err := scanPeriod(r.pool.QueryRow(ctx, query, periodID, PeriodStatusClosed, closedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("%w: period %d", ErrNotFound, periodID)
		}
		return Period{}, err
	}
	return period, nil
}

const itemColumns = `id, period_id, asset_number, sub_number, description, class_code, cost_center,
	book_value::text, depreciation_start, depreciation_end, original_life_months, original_life_years,
	revised_life_months, revised_end, physical_condition, direction, reason_code, justification,
	changed, status, updated_at`

// ListItems returns every item of a period ordered by asset and sub-number.
func (r *Repository) ListItems(ctx context.Context, periodID int64) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items
		WHERE period_id = $1 ORDER BY asset_number, sub_number`
	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// GetItem fetches a single item.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE id = $1`
	it, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("%w: item %d", ErrNotFound, id)
		}
		return Item{}, err
	}
	return it, nil
}

// GetItems fetches the selected items in one round trip.
func (r *Repository) GetItems(ctx context.Context, ids []int64) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items
		WHERE id = ANY($1) ORDER BY asset_number, sub_number`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// UpdateItemRevision persists the revision fields of one item.
func (r *Repository) UpdateItemRevision(ctx context.Context, it Item) error {
	query := `UPDATE review_items SET
			revised_life_months = $2,
			revised_end = $3,
			physical_condition = $4,
			direction = $5,
			reason_code = $6,
			justification = $7,
			changed = $8,
			updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		it.ID, it.RevisedLifeMonths, dateOrNull(it.RevisedEnd), it.PhysicalCondition,
		it.Direction, it.ReasonCode, it.Justification, it.Changed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, it.ID)
	}
	return nil
}

// ListDelegations returns every active delegation of a period.
func (r *Repository) ListDelegations(ctx context.Context, periodID int64) ([]Delegation, error) {
	query := `SELECT id, period_id, asset_number, reviewer_id, assigned_by, assigned_at
		FROM review_delegations WHERE period_id = $1 ORDER BY asset_number`
	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var delegations []Delegation
	for rows.Next() {
		var d Delegation
		if err := rows.Scan(&d.ID, &d.PeriodID, &d.AssetNumber, &d.ReviewerID, &d.AssignedBy, &d.AssignedAt); err != nil {
			return nil, err
		}
		delegations = append(delegations, d)
	}
	return delegations, rows.Err()
}

// CreateDelegation inserts a delegation, mapping the per-period uniqueness
// constraint onto ErrDelegationExists.
func (r *Repository) CreateDelegation(ctx context.Context, d Delegation) (Delegation, error) {
	query := `INSERT INTO review_delegations (period_id, asset_number, reviewer_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.pool.QueryRow(ctx, query, d.PeriodID, d.AssetNumber, d.ReviewerID, d.AssignedBy, d.AssignedAt).Scan(&d.ID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_review_delegations_period_asset" {
			return Delegation{}, ErrDelegationExists
		}
		return Delegation{}, err
	}
	return d, nil
}

// DeleteDelegation removes an asset's delegation within the period.
func (r *Repository) DeleteDelegation(ctx context.Context, periodID int64, assetNumber string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM review_delegations WHERE period_id = $1 AND asset_number = $2`,
		periodID, assetNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delegation for asset %s", ErrNotFound, assetNumber)
	}
	return nil
}

// Scanning helpers

func scanPeriod(row pgx.Row) (Period, error) {
	var (
		p        Period
		closedAt pgtype.Timestamptz
		anchor   pgtype.Date
	)
	err := row.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Description, &p.Status,
		&closedAt, &anchor, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Period{}, err
	}
	p.ClosedAt = timestampPtr(closedAt)
	p.NewLifeStart = datePtr(anchor)
	return p, nil
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it            Item
		bookValue     string
		deprStart     pgtype.Date
		deprEnd       pgtype.Date
		revisedMonths pgtype.Int4
		revisedEnd    pgtype.Date
		direction     pgtype.Text
		rawStatus     string
	)
	err := row.Scan(&it.ID, &it.PeriodID, &it.AssetNumber, &it.SubNumber, &it.Description,
		&it.ClassCode, &it.CostCenter, &bookValue, &deprStart, &deprEnd,
		&it.OriginalLifeMonths, &it.OriginalLifeYears, &revisedMonths, &revisedEnd,
		&it.PhysicalCondition, &direction, &it.ReasonCode, &it.Justification,
		&it.Changed, &rawStatus, &it.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	it.BookValue, err = decimal.NewFromString(bookValue)
	if err != nil {
		return Item{}, fmt.Errorf("review: parse book value %q: %w", bookValue, err)
	}
	it.DepreciationStart = datePtr(deprStart)
	it.DepreciationEnd = datePtr(deprEnd)
	if revisedMonths.Valid {
		v := int(revisedMonths.Int32)
		it.RevisedLifeMonths = &v
	}
	it.RevisedEnd = datePtr(revisedEnd)
	it.Direction = ParseDirection(direction.String)
	it.Status = ParseReviewStatus(rawStatus)
	return it, nil
}

func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	v := d.Time
	return &v
}

func timestampPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func dateOrNull(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
