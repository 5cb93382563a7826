package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	triageerrors "github.com/customeros/mailtriage/internal/errors"
)

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, triageerrors.ErrInvalidInput),
		errors.Is(err, triageerrors.ErrInvalidReviewTag):
		return http.StatusBadRequest
	case errors.Is(err, triageerrors.ErrEmailNotFound),
		errors.Is(err, triageerrors.ErrNotAwaitingReview):
		return http.StatusNotFound
	case errors.Is(err, triageerrors.ErrRoundInProgress),
		errors.Is(err, triageerrors.ErrFetchInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
