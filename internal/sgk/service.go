package sgk

import (
	"context"
	"errors"
	"fmt"
	"net/url"

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

// ErrNoCoverage indicates the insurer does not cover the given code.
var ErrNoCoverage = errors.New("sgk: code not covered")

// Service queries the insurer bridge. Coverage rates are stable per tariff
// period, so lookups go through the payload cache.
type Service struct {
	gateway Gateway
	cache   PayloadCachePort
}

// NewService builds Service. payloadCache may be nil.
func NewService(gateway Gateway, payloadCache PayloadCachePort) *Service {
	return &Service{gateway: gateway, cache: payloadCache}
}

// CheckEligibility asks the insurer whether the patient is covered today.
func (s *Service) CheckEligibility(ctx context.Context, tenantID, tckn string) (*Eligibility, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	query := url.Values{}
	query.Set("tckn", tckn)
	raw, err := s.gateway.Get(ctx, tenantID, "/api/sgk/eligibility", query)
	if err != nil {
		return nil, err
	}
	if !envelope.IsSuccess(raw) {
		// The bridge reports lookup failures in-band; treat them as inactive
		// coverage with the reason passed through.
		reason := envelope.ErrorMessage(raw)
		return &Eligibility{TCKN: tckn, Active: false, Reason: &reason}, nil
	}
	eligibility, err := envelope.DecodeObject[Eligibility](raw)
	if err != nil {
		return nil, err
	}
	if eligibility == nil {
		return &Eligibility{TCKN: tckn, Active: false}, nil
	}
	return eligibility, nil
}

// CoverageFor returns the insurer's coverage for an SGK item code.
func (s *Service) CoverageFor(ctx context.Context, tenantID, code string) (*Coverage, error) {
	if tenantID == "" {
		return nil, shared.ErrTenantMissing
	}
	path := fmt.Sprintf("/api/sgk/coverage/%s", url.PathEscape(code))

	loader := func(ctx context.Context) (any, error) {
		return s.gateway.Get(ctx, tenantID, path, nil)
	}
	var raw any
	var err error
	if s.cache != nil {
		raw, err = s.cache.GetOrLoad(ctx, cache.Key(tenantID, path), loader)
	} else {
		raw, err = loader(ctx)
	}
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, ErrNoCoverage
		}
		return nil, err
	}

	coverage, err := envelope.DecodeObject[Coverage](raw)
	if err != nil {
		return nil, err
	}
	if coverage == nil || coverage.Code == "" {
		return nil, ErrNoCoverage
	}
	return coverage, nil
}
