package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/klinika/klinika/internal/platform/httpx"
	"github.com/klinika/klinika/internal/shared"
)

// Handler manages sales endpoints.
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

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.list)
	r.Get("/sales/{id}", h.show)
	r.Post("/sales/quote", h.quote)
	r.Post("/sales", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage, _ := shared.ParseListParams(r.URL.Query())
	partyID, _ := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	items, pagination, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()), ListFilter{
		PartyID: partyID,
		Status:  r.URL.Query().Get("status"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, http.StatusOK, items, pagination)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, sale)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeSale(w, r)
	if !ok {
		return
	}
	quote, err := h.service.Quote(r.Context(), shared.TenantFromContext(r.Context()), input)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, quote)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeSale(w, r)
	if !ok {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	sale, err := h.service.Create(r.Context(), shared.TenantFromContext(r.Context()), sess.User(), r.Header.Get("Idempotency-Key"), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		h.respondSaleError(w, err)
		return
	}
	httpx.Data(w, http.StatusCreated, sale)
}

func (h *Handler) decodeSale(w http.ResponseWriter, r *http.Request) (CreateSaleRequest, bool) {
	var input CreateSaleRequest
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return input, false
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return input, false
	}
	return input, true
}

func (h *Handler) respondSaleError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrPatientNotCovered) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Not Covered", err.Error())
		return
	}
	httpx.RespondError(w, err)
}
