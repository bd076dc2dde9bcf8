package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/klinika/klinika/internal/platform/httpx"
	"github.com/klinika/klinika/internal/shared"
)

// Handler manages catalog and stock endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.showProduct)
	r.Get("/stock", h.stockLevels)
	r.Get("/stock/low", h.lowStock)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage, search := shared.ParseListParams(r.URL.Query())
	items, pagination, err := h.service.ListProducts(r.Context(), shared.TenantFromContext(r.Context()), ListFilter{
		Search:  search,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Paginated(w, http.StatusOK, items, pagination)
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, product)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	levels, err := h.service.StockLevels(r.Context(), shared.TenantFromContext(r.Context()), branchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, levels)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	report, err := h.service.LowStock(r.Context(), shared.TenantFromContext(r.Context()), branchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, report)
}
