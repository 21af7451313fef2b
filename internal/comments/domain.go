// Package comments implements the supervisor-to-reviewer annotation thread on
// review items: one comment, at most one reply, display-only afterwards.
package comments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CommentStatus tracks whether a comment still awaits its reply.
type CommentStatus string

const (
	StatusOpen     CommentStatus = "OPEN"
	StatusAnswered CommentStatus = "ANSWERED"
)

// CommentType distinguishes the supervisor's intent.
type CommentType string

const (
	TypeQuestion    CommentType = "QUESTION"
	TypeObservation CommentType = "OBSERVATION"
)

// Comment is one supervisor annotation on a review item. Once a reply exists
// the entry is immutable.
type Comment struct {
	ID        uuid.UUID
	ItemID    int64
	PeriodID  int64
	AuthorID  int64
	Text      string
	Type      CommentType
	Status    CommentStatus
	CreatedAt time.Time
	Reply     *Reply
}

// Reply is the reviewer's single response to a comment.
type Reply struct {
	ResponderID int64
	Text        string
	CreatedAt   time.Time
}

// Answered reports whether the comment already carries its reply.
func (c Comment) Answered() bool {
	return c.Reply != nil
}

var (
	// ErrAlreadyAnswered rejects a second reply on the same comment.
	ErrAlreadyAnswered = errors.New("comments: comment already answered")
	// ErrNotFound indicates a missing comment.
	ErrNotFound = errors.New("comments: not found")
	// ErrEmptyText rejects blank comment or reply bodies.
	ErrEmptyText = errors.New("comments: text required")
)
