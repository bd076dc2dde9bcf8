package inventory

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klinika/klinika/internal/platform/cache"
)

type fakeGateway struct {
	t         *testing.T
	responses map[string]string
	calls     int
}

func (f *fakeGateway) Get(ctx context.Context, tenantID, path string, query url.Values) (any, error) {
	f.calls++
	raw, ok := f.responses[path]
	if !ok {
		f.t.Fatalf("unexpected upstream path %s", path)
	}
	var v any
	require.NoError(f.t, json.Unmarshal([]byte(raw), &v))
	return v, nil
}

type passthroughCache struct{}

func (passthroughCache) GetOrLoad(ctx context.Context, key string, load cache.Loader) (any, error) {
	return load(ctx)
}

func TestListProductsUnwrapsItemsKey(t *testing.T) {
	fake := &fakeGateway{t: t, responses: map[string]string{
		"/api/products": `{"data":{"items":[{"id":1,"code":"P1","name":"Paracetamol","unit":"box","unit_price":45.5,"kdv_percent":10,"is_active":true}]},"meta":{"total":1}}`,
	}}
	svc := NewService(fake, passthroughCache{})

	items, pagination, err := svc.ListProducts(context.Background(), "t1", ListFilter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Paracetamol", items[0].Name)
	require.Equal(t, 1, pagination.Total)
}

func TestStockLevelsBareArray(t *testing.T) {
	fake := &fakeGateway{t: t, responses: map[string]string{
		"/api/stock": `[{"product_id":1,"branch_id":2,"quantity":4}]`,
	}}
	svc := NewService(fake, nil)

	levels, err := svc.StockLevels(context.Background(), "t1", 2)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, 4.0, levels[0].Quantity)
}

func TestLowStockJoinsCatalogAndStock(t *testing.T) {
	fake := &fakeGateway{t: t, responses: map[string]string{
		"/api/products": `{"data":[
			{"id":1,"code":"P1","name":"Paracetamol","unit":"box","min_stock":10,"is_active":true},
			{"id":2,"code":"P2","name":"Lens Fluid","unit":"pcs","min_stock":5,"is_active":true},
			{"id":3,"code":"P3","name":"Retired","unit":"pcs","min_stock":5,"is_active":false}
		]}`,
		"/api/stock": `{"data":[
			{"product_id":1,"branch_id":1,"quantity":3},
			{"product_id":2,"branch_id":1,"quantity":8}
		]}`,
	}}
	svc := NewService(fake, nil)

	report, err := svc.LowStock(context.Background(), "t1", 1)
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, int64(1), report[0].Product.ID)
	require.Equal(t, 7.0, report[0].Deficit)
}

type pagedCatalogGateway struct {
	t            *testing.T
	total        int
	productCalls int
}

func (f *pagedCatalogGateway) Get(ctx context.Context, tenantID, path string, query url.Values) (any, error) {
	if path == "/api/stock" {
		var v any
		require.NoError(f.t, json.Unmarshal([]byte(`{"data":[]}`), &v))
		return v, nil
	}
	require.Equal(f.t, "/api/products", path)
	f.productCalls++

	page, err := strconv.Atoi(query.Get("page"))
	require.NoError(f.t, err)
	perPage, err := strconv.Atoi(query.Get("per_page"))
	require.NoError(f.t, err)

	start := (page-1)*perPage + 1
	items := make([]map[string]any, 0, perPage)
	for id := start; id <= f.total && id < start+perPage; id++ {
		items = append(items, map[string]any{
			"id":        id,
			"code":      "P" + strconv.Itoa(id),
			"name":      "Ürün " + strconv.Itoa(id),
			"unit":      "box",
			"min_stock": 0,
			"is_active": true,
		})
	}
	if len(items) > 0 && start+len(items)-1 == f.total {
		items[len(items)-1]["min_stock"] = 5
	}
	raw, err := json.Marshal(map[string]any{
		"data": map[string]any{"items": items},
		"meta": map[string]any{"total": f.total},
	})
	require.NoError(f.t, err)
	var v any
	require.NoError(f.t, json.Unmarshal(raw, &v))
	return v, nil
}

func TestLowStockWalksAllCatalogPages(t *testing.T) {
	// The last of 250 products sits on page two with min_stock set but no
	// stock at all; a single-page scan would never see it.
	fake := &pagedCatalogGateway{t: t, total: 250}
	svc := NewService(fake, nil)

	report, err := svc.LowStock(context.Background(), "t1", 1)
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, int64(250), report[0].Product.ID)
	require.Equal(t, 5.0, report[0].Deficit)
	require.Equal(t, 2, fake.productCalls)
}

func TestGetProductMissingIsNotFound(t *testing.T) {
	fake := &fakeGateway{t: t, responses: map[string]string{
		"/api/products/9": `{"data":null}`,
	}}
	svc := NewService(fake, nil)

	_, err := svc.GetProduct(context.Background(), "t1", 9)
	require.Error(t, err)
}
