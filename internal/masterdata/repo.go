package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to reference data.
type Repository interface {
	GetCompany(ctx context.Context, id int64) (Company, error)
	ListCostCenters(ctx context.Context, companyID int64) ([]CostCenter, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetCompany(ctx context.Context, id int64) (Company, error) {
	if r == nil || r.pool == nil {
		return Company{}, fmt.Errorf("masterdata: repository not initialised")
	}
	const query = `SELECT id, code, name, branch FROM companies WHERE id = $1`
	var c Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Code, &c.Name, &c.Branch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, fmt.Errorf("%w: company %d", ErrNotFound, id)
		}
		return Company{}, err
	}
	return c, nil
}

func (r *pgRepository) ListCostCenters(ctx context.Context, companyID int64) ([]CostCenter, error) {
	const query = `SELECT code, description, management_unit FROM cost_centers
		WHERE company_id = $1 ORDER BY code`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var centers []CostCenter
	for rows.Next() {
		var cc CostCenter
		if err := rows.Scan(&cc.Code, &cc.Description, &cc.ManagementUnit); err != nil {
			return nil, err
		}
		centers = append(centers, cc)
	}
	return centers, rows.Err()
}
