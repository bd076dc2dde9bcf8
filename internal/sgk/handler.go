package sgk

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klinika/klinika/internal/platform/httpx"
	"github.com/klinika/klinika/internal/shared"
)

// Handler manages SGK endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers SGK routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sgk/eligibility", h.eligibility)
	r.Get("/sgk/coverage/{code}", h.coverage)
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	tckn := r.URL.Query().Get("tckn")
	if tckn == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tckn required")
		return
	}
	eligibility, err := h.service.CheckEligibility(r.Context(), shared.TenantFromContext(r.Context()), tckn)
	if err != nil {
		h.logger.Error("sgk eligibility", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, eligibility)
}

func (h *Handler) coverage(w http.ResponseWriter, r *http.Request) {
	coverage, err := h.service.CoverageFor(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		if err == ErrNoCoverage {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, coverage)
}
