// Package sales handles console invoicing: listing sales, pricing new sales
// with SGK coverage and KDV, and posting them upstream.
package sales

import (
	"time"

	"github.com/klinika/klinika/internal/sales/pricing"
)

// Sale is an invoiced transaction of a tenant.
type Sale struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	PartyID          int64      `json:"party_id"`
	BranchID         int64      `json:"branch_id"`
	Status           string     `json:"status"`
	Lines            []SaleLine `json:"lines,omitempty"`
	Gross            float64    `json:"gross"`
	DiscountAmount   float64    `json:"discount_amount"`
	InstitutionShare float64    `json:"institution_share"`
	KDVAmount        float64    `json:"kdv_amount"`
	PatientTotal     float64    `json:"patient_total"`
	GrandTotal       float64    `json:"grand_total"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// SaleLine is one invoiced item.
type SaleLine struct {
	ProductID        int64   `json:"product_id"`
	ProductName      string  `json:"product_name,omitempty"`
	Quantity         float64 `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	DiscountPercent  float64 `json:"discount_percent"`
	KDVPercent       float64 `json:"kdv_percent"`
	InstitutionShare float64 `json:"institution_share"`
	KDVAmount        float64 `json:"kdv_amount"`
	PatientTotal     float64 `json:"patient_total"`
}

// CreateSaleRequest is the console form for invoicing a sale.
type CreateSaleRequest struct {
	PartyID  int64                   `json:"party_id" validate:"required,gt=0"`
	BranchID int64                   `json:"branch_id" validate:"required,gt=0"`
	UseSGK   bool                    `json:"use_sgk"`
	TCKN     *string                 `json:"tckn,omitempty" validate:"omitempty,len=11,numeric"`
	Lines    []CreateSaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreateSaleLineRequest is one requested line before pricing.
type CreateSaleLineRequest struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	PartyID int64
	Status  string
	Page    int
	PerPage int
}

// Quote is a priced but unposted sale, shown to the cashier before confirm.
type Quote struct {
	Lines  []SaleLine     `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// SaleFinalizedEvent notifies integrations after a sale is posted upstream.
type SaleFinalizedEvent struct {
	TenantID     string
	SaleID       int64
	Code         string
	PartyID      int64
	PatientTotal float64
	GrandTotal   float64
	PostedAt     time.Time
}
