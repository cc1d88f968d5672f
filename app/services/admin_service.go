package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/storage"
)

// AdminService serves maintenance and introspection operations.
type AdminService struct {
	store    storage.Store
	resolver *resolver.Resolver
	cache    ICacheService
	logger   *zap.Logger
}

// NewAdminService wires the service. Cache is optional.
func NewAdminService(store storage.Store, res *resolver.Resolver, cache ICacheService, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{store: store, resolver: res, cache: cache, logger: logger}
}

// SystemStats is the admin stats payload.
type SystemStats struct {
	Addresses int64       `json:"addresses"`
	Cache     *CacheStats `json:"cache,omitempty"`
}

// Stats reports record counts and cache counters.
func (s *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	addresses, err := s.store.CountAddresses(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SystemStats{Addresses: addresses}
	if s.cache != nil {
		cache := s.cache.Stats()
		stats.Cache = &cache
	}
	return stats, nil
}

// RenormalizeAll re-runs the raw-field pipeline over every stored address in
// pages, returning how many were processed. The sweep stays on the local
// parser so a rules change never hammers the geocoding provider.
func (s *AdminService) RenormalizeAll(ctx context.Context) (int, error) {
	const pageSize = 200

	processed := 0
	for offset := int64(0); ; offset += pageSize {
		page, err := s.store.ListAddresses(ctx, offset, pageSize)
		if err != nil {
			return processed, err
		}
		if len(page) == 0 {
			return processed, nil
		}
		for _, address := range page {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			if _, err := s.resolver.Renormalize(ctx, address.ID, resolver.RawOptions{}); err != nil {
				s.logger.Warn("Renormalize failed",
					zap.String("address_id", address.ID.Hex()),
					zap.Error(err))
				continue
			}
			processed++
		}
	}
}

// LookupIdentifier finds the address currently bound to a provider's
// external ID. Returns (nil, nil) when the identifier is unknown.
func (s *AdminService) LookupIdentifier(ctx context.Context, provider, identifier string) (*models.AddressDetail, error) {
	record, err := s.store.FindIdentifier(ctx, provider, identifier)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	address, err := s.store.GetAddress(ctx, record.AddressID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, nil
	}
	return s.resolver.Detail(ctx, address)
}
