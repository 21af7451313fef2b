package comments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/review"
)

// Store is the persistence collaborator for comment threads.
type Store interface {
	ListByItem(ctx context.Context, itemID int64) ([]Comment, error)
	Get(ctx context.Context, id uuid.UUID) (Comment, error)
	Insert(ctx context.Context, c Comment) error
	AttachReply(ctx context.Context, id uuid.UUID, reply Reply) error
}

// PeriodLookup resolves the period owning a comment, used for the
// closed-period lock.
type PeriodLookup interface {
	GetPeriod(ctx context.Context, id int64) (review.Period, error)
}

// Service enforces the reply-once contract and the closed-period lock.
type Service struct {
	store   Store
	periods PeriodLookup
	now     func() time.Time
}

// NewService constructs a comments service.
func NewService(store Store, periods PeriodLookup) *Service {
	return &Service{store: store, periods: periods, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListByItem returns the item's thread in chronological attachment order.
func (s *Service) ListByItem(ctx context.Context, itemID int64) ([]Comment, error) {
	return s.store.ListByItem(ctx, itemID)
}

// Post attaches a supervisor comment to an item. Closed periods are
// read-only.
func (s *Service) Post(ctx context.Context, rc review.ReviewerContext, itemID, periodID int64, text string, kind CommentType) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, ErrEmptyText
	}
	period, err := s.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return Comment{}, err
	}
	if period.Closed() {
		return Comment{}, review.ErrPeriodClosed
	}
	c := Comment{
		ID:        uuid.New(),
		ItemID:    itemID,
		PeriodID:  periodID,
		AuthorID:  rc.ReviewerID,
		Text:      text,
		Type:      kind,
		Status:    StatusOpen,
		CreatedAt: s.now(),
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// Reply posts the reviewer's single reply. A second reply, or any reply once
// the owning period is closed, is rejected and the thread left unchanged.
func (s *Service) Reply(ctx context.Context, rc review.ReviewerContext, commentID uuid.UUID, text string) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, ErrEmptyText
	}
	c, err := s.store.Get(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	period, err := s.periods.GetPeriod(ctx, c.PeriodID)
	if err != nil {
		return Comment{}, err
	}
	if period.Closed() {
		return Comment{}, review.ErrPeriodClosed
	}
	if c.Answered() {
		return Comment{}, ErrAlreadyAnswered
	}
	reply := Reply{ResponderID: rc.ReviewerID, Text: text, CreatedAt: s.now()}
	if err := s.store.AttachReply(ctx, commentID, reply); err != nil {
		return Comment{}, err
	}
	c.Reply = &reply
	c.Status = StatusAnswered
	return c, nil
}
