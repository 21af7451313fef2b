package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/comments"
	"github.com/meridian-erp/meridian-erp/internal/review"
)

// RespondError maps domain errors to RFC7807 responses. Hard rejections carry
// the domain reason verbatim for user display; soft confirmation errors
// return 409 with the machine-readable reasons so the caller can resubmit
// with an explicit confirmation.
func RespondError(w http.ResponseWriter, err error) {
	var confirm *review.ConfirmationRequiredError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &confirm):
		reasons := make([]string, len(confirm.Reasons))
		for i, r := range confirm.Reasons {
			reasons[i] = string(r)
		}
		JSON(w, http.StatusConflict, ProblemDetail{
			Title:   "Confirmation Required",
			Status:  http.StatusConflict,
			Detail:  err.Error(),
			Reasons: reasons,
		})
	case errors.As(err, &invalid):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, review.ErrNotFound), errors.Is(err, comments.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, review.ErrPeriodClosed):
		Problem(w, http.StatusLocked, "Period Closed", err.Error())
	case errors.Is(err, review.ErrMissingPeriodAnchor),
		errors.Is(err, review.ErrInconsistentDirection),
		errors.Is(err, review.ErrJustificationRequired),
		errors.Is(err, comments.ErrEmptyText):
		Problem(w, http.StatusUnprocessableEntity, "Rejected", err.Error())
	case errors.Is(err, review.ErrDelegationExists), errors.Is(err, comments.ErrAlreadyAnswered):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, review.ErrCollaboratorUnavailable):
		Problem(w, http.StatusBadGateway, "Persistence Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
