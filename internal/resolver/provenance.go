package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
)

// recordSource writes one provenance record for an address/provider pair:
// the next version number, the provider's raw payload, and the normalized
// component snapshot. After the insert, older versions beyond the retention
// window are pruned, and any stable provider identifier is upserted.
func (r *Resolver) recordSource(ctx context.Context, address *models.Address, comps *geocode.Components) error {
	provider := strings.ToLower(strings.TrimSpace(comps.Provider))
	if provider == "" {
		return nil
	}

	latest, err := r.store.LatestSourceVersion(ctx, address.ID, provider)
	if err != nil {
		return fmt.Errorf("latest source version: %w", err)
	}

	source := &models.AddressSource{
		AddressID:            address.ID,
		Provider:             provider,
		Version:              latest + 1,
		RawPayload:           comps.RawPayload,
		NormalizedComponents: componentsSnapshot(comps),
		Metadata:             comps.Metadata,
	}
	if err := r.store.InsertSource(ctx, source); err != nil {
		return fmt.Errorf("insert address source: %w", err)
	}

	// Prune unconditionally; a no-op when under the cap.
	removed, err := r.store.PruneSources(ctx, address.ID, provider, sourceRetention)
	if err != nil {
		return fmt.Errorf("prune address sources: %w", err)
	}
	if removed > 0 {
		r.logger.Debug("Pruned address sources",
			zap.String("provider", provider),
			zap.Int("removed", removed))
	}

	if identifier := externalIdentifier(provider, comps); identifier != "" {
		record := &models.AddressIdentifier{
			AddressID:  address.ID,
			Provider:   provider,
			Identifier: identifier,
		}
		if err := r.store.UpsertIdentifier(ctx, record); err != nil {
			return fmt.Errorf("upsert address identifier: %w", err)
		}
	}
	return nil
}

// componentsSnapshot freezes the normalized mapping as stored in the
// provenance record.
func componentsSnapshot(comps *geocode.Components) map[string]any {
	snap := map[string]any{
		"street_number":    comps.StreetNumber,
		"street_name":      comps.StreetName,
		"route":            comps.Route,
		"street_type":      comps.StreetType,
		"street_direction": comps.StreetDirection,
		"unit_type":        comps.UnitType,
		"unit_number":      comps.UnitNumber,
		"formatted":        comps.Formatted,
		"locality":         comps.Location.Locality,
		"postal_code":      comps.Location.PostalCode,
		"state":            comps.Location.State,
		"state_code":       comps.Location.StateCode,
		"country":          comps.Location.Country,
		"country_code":     comps.Location.CountryCode,
	}
	if comps.Latitude != nil {
		snap["latitude"] = *comps.Latitude
	}
	if comps.Longitude != nil {
		snap["longitude"] = *comps.Longitude
	}
	if comps.IsPOBox != nil {
		snap["is_po_box"] = *comps.IsPOBox
	}
	if comps.IsMilitary != nil {
		snap["is_military"] = *comps.IsMilitary
	}
	return snap
}

// externalIdentifier extracts a provider's stable ID from a payload. Each
// provider hides it in a different spot.
func externalIdentifier(provider string, comps *geocode.Components) string {
	lookup := func(m map[string]any, key string) string {
		if m == nil {
			return ""
		}
		if v, ok := m[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	switch provider {
	case "google":
		if id := lookup(comps.Metadata, "place_id"); id != "" {
			return id
		}
		if id := lookup(comps.RawPayload, "place_id"); id != "" {
			return id
		}
		// Full API payloads carry the ID on the first results entry.
		if results, ok := comps.RawPayload["results"].([]any); ok && len(results) > 0 {
			if first, ok := results[0].(map[string]any); ok {
				return lookup(first, "place_id")
			}
		}
		return ""
	case "loqate":
		if id := lookup(comps.Metadata, "id"); id != "" {
			return id
		}
		return lookup(comps.RawPayload, "Id")
	default:
		return ""
	}
}
