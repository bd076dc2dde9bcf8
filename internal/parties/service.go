package parties

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/klinika/klinika/internal/envelope"
	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/shared"
)

// Gateway abstracts the upstream client for this module.
type Gateway interface {
	Get(ctx context.Context, tenantID, path string, query url.Values) (any, error)
	Post(ctx context.Context, tenantID, path string, body any) (any, error)
	Put(ctx context.Context, tenantID, path string, body any) (any, error)
}

// AuditPort records console actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates party operations against the upstream API.
type Service struct {
	gateway Gateway
	audit   AuditPort
}

// NewService builds Service.
func NewService(gateway Gateway, audit AuditPort) *Service {
	return &Service{gateway: gateway, audit: audit}
}

// List returns parties for the tenant with console pagination.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]Party, shared.Pagination, error) {
	if tenantID == "" {
		return nil, shared.Pagination{}, shared.ErrTenantMissing
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(filter.Page))
	query.Set("per_page", strconv.Itoa(filter.PerPage))
	if filter.Search != "" {
		query.Set("q", filter.Search)
	}
	if filter.Kind != "" {
		query.Set("kind", filter.Kind)
	}

	raw, err := s.gateway.Get(ctx, tenantID, "/api/parties", query)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	items, page, err := envelope.DecodePaginated[Party](raw)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].Name = NormalizeDisplayName(items[i].Name)
	}
	return items, shared.PaginationFromPage(page, filter.Page, filter.PerPage), nil
}

// Get fetches a single party.
func (s *Service) Get(ctx context.Context, tenantID string, id int64) (*Party, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	raw, err := s.gateway.Get(ctx, tenantID, fmt.Sprintf("/api/parties/%d", id), nil)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	party, err := envelope.DecodeObject[Party](raw)
	if err != nil {
		return nil, err
	}
	if party == nil || party.ID == 0 {
		return nil, shared.ErrNotFound
	}
	party.Name = NormalizeDisplayName(party.Name)
	return party, nil
}

// ErrInvalidTCKN rejects structurally invalid national ids before they reach
// the upstream.
var ErrInvalidTCKN = errors.New("parties: invalid tckn")

// Create registers a new party upstream.
func (s *Service) Create(ctx context.Context, tenantID, actorID string, input CreatePartyRequest) (*Party, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	if input.TCKN != nil && !ValidTCKN(*input.TCKN) {
		return nil, ErrInvalidTCKN
	}
	input.Name = NormalizeDisplayName(input.Name)

	raw, err := s.gateway.Post(ctx, tenantID, "/api/parties", input)
	if err != nil {
		return nil, err
	}
	if !envelope.IsSuccess(raw) {
		return nil, fmt.Errorf("parties: create rejected: %s", rejectionReason(raw))
	}
	party, err := envelope.DecodeObject[Party](raw)
	if err != nil {
		return nil, err
	}
	if party == nil {
		return nil, fmt.Errorf("parties: create returned no payload")
	}
	s.recordAudit(ctx, tenantID, actorID, "create", party.ID)
	return party, nil
}

// Update edits an existing party upstream.
func (s *Service) Update(ctx context.Context, tenantID, actorID string, id int64, input UpdatePartyRequest) (*Party, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	if input.Name != nil {
		normalized := NormalizeDisplayName(*input.Name)
		input.Name = &normalized
	}

	raw, err := s.gateway.Put(ctx, tenantID, fmt.Sprintf("/api/parties/%d", id), input)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if !envelope.IsSuccess(raw) {
		return nil, fmt.Errorf("parties: update rejected: %s", rejectionReason(raw))
	}
	party, err := envelope.DecodeObject[Party](raw)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, actorID, "update", id)
	return party, nil
}

func (s *Service) recordAudit(ctx context.Context, tenantID, actorID, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "party",
		EntityID: strconv.FormatInt(id, 10),
	})
}

func rejectionReason(raw any) string {
	if msg := envelope.ErrorMessage(raw); msg != "" {
		return msg
	}
	return "upstream reported failure"
}
