// Package resolver implements normalization-aware find-or-create for the
// Country > State > Locality hierarchy and deduplicated address records, plus
// the raw-input pipeline that falls back from geocoding to regex parsing.
package resolver

import (
	"go.uber.org/zap"

	"github.com/address-kit/internal/storage"
)

// Retain at most this many provenance records per (address, provider).
const sourceRetention = 3

// Resolver coordinates lookups and writes through a storage.Store. It holds
// no state of its own; concurrent callers race only at the store, where
// unique constraints plus duplicate-key retries keep results convergent.
type Resolver struct {
	store  storage.Store
	logger *zap.Logger
}

// New builds a Resolver. A nil logger is replaced with a no-op logger.
func New(store storage.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}
