// Package report renders sale receipts as PDF through a Gotenberg service.
package report

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/klinika/klinika/internal/platform/httpx"
	"github.com/klinika/klinika/internal/sales"
	"github.com/klinika/klinika/internal/shared"
)

// SaleSource resolves sales for rendering.
type SaleSource interface {
	Get(ctx context.Context, tenantID string, id int64) (*sales.Sale, error)
}

// Handler serves receipt PDFs for posted sales.
type Handler struct {
	client *Client
	sales  SaleSource
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, sales SaleSource, logger *slog.Logger) *Handler {
	return &Handler{client: client, sales: sales, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/sales/{id}/receipt.pdf", h.receipt)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, err := h.sales.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("load sale for receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), ReceiptHTML(sale))
	if err != nil {
		h.logger.Error("render receipt pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", "pdf rendering unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", sale.Code))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// ReceiptHTML builds the printable receipt for a sale. HTML is assembled by
// hand because Gotenberg receives a single self-contained document.
func ReceiptHTML(sale *sales.Sale) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><title>Satış Fişi</title></head><body>")
	b.WriteString("<h1>Satış Fişi</h1>")
	b.WriteString("<p>Fiş no: " + template.HTMLEscapeString(sale.Code) + "</p>")
	if sale.CreatedAt != nil {
		b.WriteString("<p>Tarih: " + sale.CreatedAt.Format("02.01.2006 15:04") + "</p>")
	} else {
		b.WriteString("<p>Tarih: " + time.Now().Format("02.01.2006 15:04") + "</p>")
	}
	b.WriteString("<table border=\"1\" cellspacing=\"0\" cellpadding=\"4\">")
	b.WriteString("<tr><th>Ürün</th><th>Adet</th><th>Birim Fiyat</th><th>KDV</th><th>Tutar</th></tr>")
	for _, line := range sale.Lines {
		b.WriteString("<tr><td>" + template.HTMLEscapeString(line.ProductName) + "</td>")
		b.WriteString("<td>" + strconv.FormatFloat(line.Quantity, 'f', 0, 64) + "</td>")
		b.WriteString("<td>" + formatTL(line.UnitPrice) + "</td>")
		b.WriteString("<td>" + formatTL(line.KDVAmount) + "</td>")
		b.WriteString("<td>" + formatTL(line.PatientTotal) + "</td></tr>")
	}
	b.WriteString("</table>")
	if sale.InstitutionShare > 0 {
		b.WriteString("<p>SGK kurum payı: " + formatTL(sale.InstitutionShare) + "</p>")
	}
	if sale.DiscountAmount > 0 {
		b.WriteString("<p>İndirim: " + formatTL(sale.DiscountAmount) + "</p>")
	}
	b.WriteString("<p><strong>Hasta toplamı: " + formatTL(sale.PatientTotal) + "</strong></p>")
	b.WriteString("<p>Genel toplam: " + formatTL(sale.GrandTotal) + "</p>")
	b.WriteString("</body></html>")
	return b.String()
}

func formatTL(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " TL"
}
