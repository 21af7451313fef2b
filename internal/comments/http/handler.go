// Package commentshttp exposes the comment thread workflow over JSON.
package commentshttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/comments"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/review"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type commentService interface {
	ListByItem(ctx context.Context, itemID int64) ([]comments.Comment, error)
	Post(ctx context.Context, rc review.ReviewerContext, itemID, periodID int64, text string, kind comments.CommentType) (comments.Comment, error)
	Reply(ctx context.Context, rc review.ReviewerContext, commentID uuid.UUID, text string) (comments.Comment, error)
}

// Handler wires HTTP endpoints for comment threads.
type Handler struct {
	logger   *slog.Logger
	service  commentService
	validate *validator.Validate
}

// NewHandler constructs a comments HTTP handler.
func NewHandler(logger *slog.Logger, service commentService) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items/{id}/comments", h.listComments)
	r.Post("/items/{id}/comments", h.postComment)
	r.Post("/comments/{id}/reply", h.reply)
}

type postCommentRequest struct {
	PeriodID int64  `json:"period_id" validate:"required,gt=0"`
	Text     string `json:"text" validate:"required"`
	Type     string `json:"type" validate:"omitempty,oneof=QUESTION OBSERVATION"`
}

type replyRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item id must be a positive integer")
		return
	}
	thread, err := h.service.ListByItem(r.Context(), itemID)
	if err != nil {
		h.logger.Error("list comments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comments": toCommentViews(thread)})
}

func (h *Handler) postComment(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item id must be a positive integer")
		return
	}
	rc, ok := shared.ReviewerFromContext(r.Context())
	if !ok || !rc.Supervisor {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "comments are a supervisor action")
		return
	}
	var req postCommentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	kind := comments.CommentType(req.Type)
	if kind == "" {
		kind = comments.TypeObservation
	}
	c, err := h.service.Post(r.Context(), rc, itemID, req.PeriodID, req.Text, kind)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCommentView(c))
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request) {
	commentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "comment id must be a UUID")
		return
	}
	rc, ok := shared.ReviewerFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "reviewer identity missing")
		return
	}
	var req replyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Reply(r.Context(), rc, commentID, req.Text)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCommentView(c))
}

type commentView struct {
	ID        string     `json:"id"`
	ItemID    int64      `json:"item_id"`
	PeriodID  int64      `json:"period_id"`
	AuthorID  int64      `json:"author_id"`
	Text      string     `json:"text"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Reply     *replyView `json:"reply,omitempty"`
}

type replyView struct {
	ResponderID int64     `json:"responder_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCommentView(c comments.Comment) commentView {
	view := commentView{
		ID:        c.ID.String(),
		ItemID:    c.ItemID,
		PeriodID:  c.PeriodID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		Type:      string(c.Type),
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
	if c.Reply != nil {
		view.Reply = &replyView{
			ResponderID: c.Reply.ResponderID,
			Text:        c.Reply.Text,
			CreatedAt:   c.Reply.CreatedAt,
		}
	}
	return view
}

func toCommentViews(thread []comments.Comment) []commentView {
	views := make([]commentView, len(thread))
	for i, c := range thread {
		views[i] = toCommentView(c)
	}
	return views
}
