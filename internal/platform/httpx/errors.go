package httpx

import (
	"errors"
	"net/http"

	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/shared"
)

// Sentinel errors for the handler layer.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// RespondError maps domain and upstream errors to RFC7807 responses. Upstream
// failures surface as 502 so the console can tell a broken gateway from a
// broken clinic backend, except 404/409 which keep their meaning.
func RespondError(w http.ResponseWriter, err error) {
	var ue *upstream.Error
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrTenantMissing):
		Problem(w, http.StatusForbidden, "Tenant Missing", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &ue):
		switch ue.Status {
		case http.StatusNotFound:
			Problem(w, http.StatusNotFound, "Not Found", ue.Message)
		case http.StatusConflict:
			Problem(w, http.StatusConflict, "Conflict", ue.Message)
		default:
			Problem(w, http.StatusBadGateway, "Upstream Error", ue.Message)
		}
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
