package comments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists comment threads in PostgreSQL. The reply-once contract
// is also enforced by the data model: reply columns are written exactly once.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const commentColumns = `id, item_id, period_id, author_id, body, type, status,
	created_at, reply_responder_id, reply_body, reply_created_at`

// ListByItem returns the item's comments in chronological attachment order.
func (r *Repository) ListByItem(ctx context.Context, itemID int64) ([]Comment, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("comments: repository not initialised")
	}
	query := `SELECT ` + commentColumns + ` FROM review_comments
		WHERE item_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches one comment.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM review_comments WHERE id = $1`
	c, err := scanComment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, fmt.Errorf("%w: comment %s", ErrNotFound, id)
		}
		return Comment{}, err
	}
	return c, nil
}

// Insert stores a new comment.
func (r *Repository) Insert(ctx context.Context, c Comment) error {
	query := `INSERT INTO review_comments (id, item_id, period_id, author_id, body, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.ItemID, c.PeriodID, c.AuthorID, c.Text, c.Type, c.Status, c.CreatedAt)
	return err
}

// AttachReply writes the single reply. The guard clause keeps a concurrent
// second reply from overwriting the first.
func (r *Repository) AttachReply(ctx context.Context, id uuid.UUID, reply Reply) error {
	query := `UPDATE review_comments SET
			reply_responder_id = $2, reply_body = $3, reply_created_at = $4, status = $5
		WHERE id = $1 AND reply_body IS NULL`
	tag, err := r.pool.Exec(ctx, query, id, reply.ResponderID, reply.Text, reply.CreatedAt, StatusAnswered)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAnswered
	}
	return nil
}

func scanComment(row pgx.Row) (Comment, error) {
	var (
		c           Comment
		responderID pgtype.Int8
		replyBody   pgtype.Text
		replyAt     pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.ItemID, &c.PeriodID, &c.AuthorID, &c.Text, &c.Type, &c.Status,
		&c.CreatedAt, &responderID, &replyBody, &replyAt)
	if err != nil {
		return Comment{}, err
	}
	if replyBody.Valid {
		c.Reply = &Reply{
			ResponderID: responderID.Int64,
			Text:        replyBody.String,
			CreatedAt:   timeOf(replyAt),
		}
	}
	return c, nil
}

func timeOf(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
