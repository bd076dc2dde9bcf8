// Package inventory exposes the tenant's product catalog and stock levels.
// Stock is tracked by the upstream system; the console only reads it, plus a
// low-stock report driving replenishment alerts.
package inventory

// Product is a sellable item (drug, frame, consumable) of a tenant.
type Product struct {
	ID            int64    `json:"id"`
	Code          string   `json:"code"`
	Barcode       *string  `json:"barcode,omitempty"`
	Name          string   `json:"name"`
	Category      *string  `json:"category,omitempty"`
	Unit          string   `json:"unit"`
	UnitPrice     float64  `json:"unit_price"`
	KDVPercent    float64  `json:"kdv_percent"`
	SGKCode       *string  `json:"sgk_code,omitempty"`
	MinStock      float64  `json:"min_stock"`
	IsActive      bool     `json:"is_active"`
}

// StockLevel is the current quantity of a product at a branch.
type StockLevel struct {
	ProductID int64   `json:"product_id"`
	BranchID  int64   `json:"branch_id"`
	Quantity  float64 `json:"quantity"`
}

// LowStockItem pairs a product with its shortfall against min stock.
type LowStockItem struct {
	Product  Product `json:"product"`
	Quantity float64 `json:"quantity"`
	Deficit  float64 `json:"deficit"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}
