package sales

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/klinika/klinika/internal/envelope"
	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/sales/pricing"
	"github.com/klinika/klinika/internal/sgk"
	"github.com/klinika/klinika/internal/shared"
)

// Gateway abstracts the upstream client for this module.
type Gateway interface {
	Get(ctx context.Context, tenantID, path string, query url.Values) (any, error)
	Post(ctx context.Context, tenantID, path string, body any) (any, error)
}

// CatalogPort resolves products for pricing.
type CatalogPort interface {
	GetProduct(ctx context.Context, tenantID string, id int64) (*inventory.Product, error)
}

// InsurerPort resolves SGK eligibility and coverage.
type InsurerPort interface {
	CheckEligibility(ctx context.Context, tenantID, tckn string) (*sgk.Eligibility, error)
	CoverageFor(ctx context.Context, tenantID, code string) (*sgk.Coverage, error)
}

// IntegrationHandler receives domain events after a sale is posted.
type IntegrationHandler interface {
	HandleSaleFinalized(ctx context.Context, evt SaleFinalizedEvent) error
}

// AuditPort records console actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replayed create requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// ErrPatientNotCovered rejects SGK sales for inactive patients.
var ErrPatientNotCovered = errors.New("sales: patient has no active sgk coverage")

// Service prices and posts sales.
type Service struct {
	gateway     Gateway
	catalog     CatalogPort
	insurer     InsurerPort
	integration IntegrationHandler
	audit       AuditPort
	idempotency IdempotencyPort
}

// NewService builds Service. integration, audit, and idempotency may be nil.
func NewService(gateway Gateway, catalog CatalogPort, insurer InsurerPort, integration IntegrationHandler, audit AuditPort, idempotency IdempotencyPort) *Service {
	return &Service{gateway: gateway, catalog: catalog, insurer: insurer, integration: integration, audit: audit, idempotency: idempotency}
}

// List returns the tenant's sales page.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]Sale, shared.Pagination, error) {
	if tenantID == "" {
		return nil, shared.Pagination{}, shared.ErrTenantMissing
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(filter.Page))
	query.Set("per_page", strconv.Itoa(filter.PerPage))
	if filter.PartyID > 0 {
		query.Set("party_id", strconv.FormatInt(filter.PartyID, 10))
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	raw, err := s.gateway.Get(ctx, tenantID, "/api/sales", query)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	items, page, err := envelope.DecodePaginated[Sale](raw)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.PaginationFromPage(page, filter.Page, filter.PerPage), nil
}

// Get fetches a single sale with lines.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Sale, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	raw, err := s.gateway.Get(ctx, tenantID, fmt.Sprintf("/api/sales/%d", id), nil)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	sale, err := envelope.DecodeObject[Sale](raw)
	if err != nil {
		return nil, err
	}
	if sale == nil || sale.ID == 0 {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}

// Quote prices a sale without posting it. SGK coverage applies only when the
// request asks for it and the patient's coverage is active.
func (s *Service) Quote(ctx context.Context, tenantID string, input CreateSaleRequest) (*Quote, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}

	useSGK := false
	if input.UseSGK {
		if input.TCKN == nil {
			return nil, ErrPatientNotCovered
		}
		eligibility, err := s.insurer.CheckEligibility(ctx, tenantID, *input.TCKN)
		if err != nil {
			return nil, err
		}
		if !eligibility.Active {
			return nil, ErrPatientNotCovered
		}
		useSGK = true
	}

	lines := make([]SaleLine, 0, len(input.Lines))
	breakdowns := make([]pricing.LineTotals, 0, len(input.Lines))
	for _, req := range input.Lines {
		product, err := s.catalog.GetProduct(ctx, tenantID, req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("sales: product %d: %w", req.ProductID, err)
		}

		line := pricing.Line{
			Quantity:        req.Quantity,
			UnitPrice:       product.UnitPrice,
			DiscountPercent: req.DiscountPercent,
			KDVPercent:      product.KDVPercent,
		}
		if useSGK && product.SGKCode != nil {
			coverage, err := s.insurer.CoverageFor(ctx, tenantID, *product.SGKCode)
			if err != nil && !errors.Is(err, sgk.ErrNoCoverage) {
				return nil, err
			}
			if coverage != nil {
				line.Coverage = *coverage
			}
		}

		totals := pricing.CalculateLine(line)
		breakdowns = append(breakdowns, totals)
		lines = append(lines, SaleLine{
			ProductID:        product.ID,
			ProductName:      product.Name,
			Quantity:         req.Quantity,
			UnitPrice:        product.UnitPrice,
			DiscountPercent:  req.DiscountPercent,
			KDVPercent:       product.KDVPercent,
			InstitutionShare: totals.InstitutionShare,
			KDVAmount:        totals.KDVAmount,
			PatientTotal:     totals.PatientTotal,
		})
	}

	return &Quote{Lines: lines, Totals: pricing.CalculateTotals(breakdowns)}, nil
}

// Create prices the sale, posts it upstream, and fires integration hooks.
// A non-empty idempotency key rejects replays before anything is posted.
func (s *Service) Create(ctx context.Context, tenantID, actorID, idempotencyKey string, input CreateSaleRequest) (*Sale, error) {
	quote, err := s.Quote(ctx, tenantID, input)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, tenantID+":"+idempotencyKey, "sales"); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"party_id":          input.PartyID,
		"branch_id":         input.BranchID,
		"lines":             quote.Lines,
		"gross":             quote.Totals.Gross,
		"discount_amount":   quote.Totals.DiscountAmount,
		"institution_share": quote.Totals.InstitutionShare,
		"kdv_amount":        quote.Totals.KDVAmount,
		"patient_total":     quote.Totals.PatientTotal,
		"grand_total":       quote.Totals.GrandTotal,
	}
	raw, err := s.gateway.Post(ctx, tenantID, "/api/sales", payload)
	if err != nil {
		return nil, err
	}
	if !envelope.IsSuccess(raw) {
		reason := envelope.ErrorMessage(raw)
		if reason == "" {
			reason = "upstream reported failure"
		}
		return nil, fmt.Errorf("sales: create rejected: %s", reason)
	}
	sale, err := envelope.DecodeObject[Sale](raw)
	if err != nil {
		return nil, err
	}
	if sale == nil || sale.ID == 0 {
		return nil, fmt.Errorf("sales: create returned no payload")
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "create",
			Entity:   "sale",
			EntityID: strconv.FormatInt(sale.ID, 10),
			Meta:     map[string]any{"grand_total": sale.GrandTotal},
		})
	}
	if s.integration != nil {
		evt := SaleFinalizedEvent{
			TenantID:     tenantID,
			SaleID:       sale.ID,
			Code:         sale.Code,
			PartyID:      sale.PartyID,
			PatientTotal: sale.PatientTotal,
			GrandTotal:   sale.GrandTotal,
			PostedAt:     time.Now(),
		}
		if err := s.integration.HandleSaleFinalized(ctx, evt); err != nil {
			return nil, err
		}
	}
	return sale, nil
}
