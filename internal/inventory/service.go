package inventory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/klinika/klinika/internal/envelope"
	"github.com/klinika/klinika/internal/platform/cache"
	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/shared"
)

// Gateway abstracts the upstream client for this module.
type Gateway interface {
	Get(ctx context.Context, tenantID, path string, query url.Values) (any, error)
}

// PayloadCachePort caches decoded upstream payloads.
type PayloadCachePort interface {
	GetOrLoad(ctx context.Context, key string, load cache.Loader) (any, error)
}

// Service reads catalog and stock data from the upstream API. Product lists
// change rarely during a console session, so they go through the payload
// cache; stock levels are always read fresh.
type Service struct {
	gateway Gateway
	cache   PayloadCachePort
}

// NewService builds Service. cache may be nil, which disables caching.
func NewService(gateway Gateway, payloadCache PayloadCachePort) *Service {
	return &Service{gateway: gateway, cache: payloadCache}
}

// ListProducts returns the tenant's catalog page.
func (s *Service) ListProducts(ctx context.Context, tenantID string, filter ListFilter) ([]Product, shared.Pagination, error) {
	if tenantID == "" {
		return nil, shared.Pagination{}, shared.ErrTenantMissing
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(filter.Page))
	query.Set("per_page", strconv.Itoa(filter.PerPage))
	if filter.Search != "" {
		query.Set("q", filter.Search)
	}
	path := "/api/products"

	raw, err := s.fetch(ctx, tenantID, path, query)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	items, page, err := envelope.DecodePaginated[Product](raw)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.PaginationFromPage(page, filter.Page, filter.PerPage), nil
}

// GetProduct fetches a single catalog entry.
func (s *Service) GetProduct(ctx context.Context, tenantID string, id int64) (*Product, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	raw, err := s.gateway.Get(ctx, tenantID, fmt.Sprintf("/api/products/%d", id), nil)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	product, err := envelope.DecodeObject[Product](raw)
	if err != nil {
		return nil, err
	}
	if product == nil || product.ID == 0 {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

// StockLevels returns current stock for a branch.
func (s *Service) StockLevels(ctx context.Context, tenantID string, branchID int64) ([]StockLevel, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	query := url.Values{}
	query.Set("branch_id", strconv.FormatInt(branchID, 10))
	raw, err := s.gateway.Get(ctx, tenantID, "/api/stock", query)
	if err != nil {
		return nil, err
	}
	return envelope.DecodeArray[StockLevel](raw)
}

// lowStockPageSize sizes the catalog pages a low-stock scan walks through.
const lowStockPageSize = 200

// LowStock reports products below their minimum stock for a branch. The
// upstream has no such endpoint, so the report joins catalog and stock here.
// The scan walks every catalog page so products past the first one are
// still checked.
func (s *Service) LowStock(ctx context.Context, tenantID string, branchID int64) ([]LowStockItem, error) {
	var products []Product
	for page := 1; ; page++ {
		items, pagination, err := s.ListProducts(ctx, tenantID, ListFilter{Page: page, PerPage: lowStockPageSize})
		if err != nil {
			return nil, err
		}
		products = append(products, items...)
		if len(items) < lowStockPageSize {
			break
		}
		if pagination.Total > 0 && len(products) >= pagination.Total {
			break
		}
	}
	levels, err := s.StockLevels(ctx, tenantID, branchID)
	if err != nil {
		return nil, err
	}

	quantities := make(map[int64]float64, len(levels))
	for _, level := range levels {
		quantities[level.ProductID] += level.Quantity
	}

	var report []LowStockItem
	for _, product := range products {
		if !product.IsActive || product.MinStock <= 0 {
			continue
		}
		qty := quantities[product.ID]
		if qty < product.MinStock {
			report = append(report, LowStockItem{
				Product:  product,
				Quantity: qty,
				Deficit:  product.MinStock - qty,
			})
		}
	}
	return report, nil
}

func (s *Service) fetch(ctx context.Context, tenantID, path string, query url.Values) (any, error) {
	if s.cache == nil {
		return s.gateway.Get(ctx, tenantID, path, query)
	}
	key := cache.Key(tenantID, path+"?"+query.Encode())
	return s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.gateway.Get(ctx, tenantID, path, query)
	})
}
