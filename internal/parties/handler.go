package parties

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/klinika/klinika/internal/platform/httpx"
	"github.com/klinika/klinika/internal/shared"
)

// Handler manages party endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers party routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/parties", h.list)
	r.Get("/parties/{id}", h.show)
	r.Post("/parties", h.create)
	r.Put("/parties/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage, search := shared.ParseListParams(r.URL.Query())
	filter := ListFilter{
		Search:  search,
		Kind:    r.URL.Query().Get("kind"),
		Page:    page,
		PerPage: perPage,
	}
	items, pagination, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list parties", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, http.StatusOK, items, pagination)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid party id")
		return
	}
	party, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, party)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreatePartyRequest
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	party, err := h.service.Create(r.Context(), shared.TenantFromContext(r.Context()), sess.User(), input)
	if err != nil {
		if err == ErrInvalidTCKN {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create party", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusCreated, party)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid party id")
		return
	}
	var input UpdatePartyRequest
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	party, err := h.service.Update(r.Context(), shared.TenantFromContext(r.Context()), sess.User(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, party)
}
