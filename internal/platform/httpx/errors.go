package httpx

import (
	"errors"
	"net/http"

	"github.com/noiddea/dash/internal/shared"
)

// RespondError maps domain errors to HTTP statuses. Nothing escapes as an
// unhandled fault: unknown errors collapse to a 500 storage failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrPermissionDenied), errors.Is(err, shared.ErrOwnershipMismatch):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "storage failure")
	}
}
