package shared

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/review"
)

type reviewerContextKey struct{}

// ContextWithReviewer stores the acting reviewer in context. Identity is
// resolved once at the transport boundary; domain code receives it as an
// explicit value and never reads ambient state.
func ContextWithReviewer(ctx context.Context, rc review.ReviewerContext) context.Context {
	return context.WithValue(ctx, reviewerContextKey{}, rc)
}

// ReviewerFromContext extracts the acting reviewer from context.
func ReviewerFromContext(ctx context.Context) (review.ReviewerContext, bool) {
	rc, ok := ctx.Value(reviewerContextKey{}).(review.ReviewerContext)
	return rc, ok
}
