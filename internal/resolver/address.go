package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/external"
	"github.com/address-kit/internal/formatter"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/normalizer"
	"github.com/address-kit/internal/parser"
	"github.com/address-kit/internal/storage"
)

// ProviderParser marks components that came from the regex parser rather
// than a geocoding service.
const ProviderParser = "parser"

// ProviderGeocoder attributes results from a plain GeocodeFunc that did not
// name its own provider.
const ProviderGeocoder = "geocoder"

// RawOptions controls CreateAddressFromRaw. At most one of Adapter and
// GeocodeFunc should be set; with neither, the pipeline goes straight to the
// regex parser.
type RawOptions struct {
	// Adapter geocodes with rate-limit-aware retries.
	Adapter geocode.Adapter
	// GeocodeFunc is a single-shot alternative; its errors propagate to the
	// caller unchanged.
	GeocodeFunc geocode.Func
	// Retry bounds the Adapter retry loop; zero value means defaults.
	Retry geocode.RetryConfig
	// Sleep is swapped out by tests; nil means time.Sleep.
	Sleep func(time.Duration)
	// SurfaceGeocodeErrors propagates generic geocode failures instead of
	// falling back to the parser. Rate-limit exhaustion and configuration
	// errors always propagate.
	SurfaceGeocodeErrors bool
}

// ResolveAddressFromComponents finds or creates a deduplicated address from
// a normalized component mapping. The dedup key is (raw, street number,
// street name, locality); a blank raw falls back to the payload's formatted
// string, then to a rendering of the components. On a hit, every changed
// non-empty value from the payload overwrites the stored field. Either way,
// a provenance record is written when the payload names its provider.
func (r *Resolver) ResolveAddressFromComponents(ctx context.Context, raw string, comps *geocode.Components) (*models.Address, error) {
	if comps == nil || comps.Empty() {
		return nil, errors.New("cannot resolve an empty component mapping")
	}

	location, err := r.ResolveLocation(ctx, comps.Location)
	if err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = rawForComponents(comps)
	}
	key := storage.AddressDedupKey{
		Raw:          raw,
		StreetNumber: strings.TrimSpace(comps.StreetNumber),
		StreetName:   strings.TrimSpace(comps.StreetName),
	}
	if location.Locality != nil {
		key.LocalityID = location.Locality.ID
	}

	address, err := r.store.FindAddress(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find address: %w", err)
	}
	if address != nil {
		if err := r.enrichAddress(ctx, address, comps); err != nil {
			return nil, err
		}
	} else {
		address, err = r.createAddress(ctx, key, comps, location)
		if err != nil {
			return nil, err
		}
	}

	if err := r.recordSource(ctx, address, comps); err != nil {
		return nil, err
	}
	return address, nil
}

// createAddress inserts a new address, re-reading on a lost insert race.
func (r *Resolver) createAddress(ctx context.Context, key storage.AddressDedupKey, comps *geocode.Components, location *ResolvedLocation) (*models.Address, error) {
	address := buildAddress(key, comps)

	created, err := r.store.CreateAddress(ctx, address)
	if err == nil {
		r.logger.Debug("Created address",
			zap.String("raw", created.Raw),
			zap.String("provider", comps.Provider))
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("create address: %w", err)
	}

	existing, ferr := r.store.FindAddress(ctx, key)
	if ferr != nil {
		return nil, fmt.Errorf("re-find address after duplicate: %w", ferr)
	}
	if existing == nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	if err := r.enrichAddress(ctx, existing, comps); err != nil {
		return nil, err
	}
	return existing, nil
}

// enrichAddress diffs a stored address against a new payload, applies every
// changed non-empty value, and persists only when something actually changed.
func (r *Resolver) enrichAddress(ctx context.Context, address *models.Address, comps *geocode.Components) error {
	if !applyComponents(address, comps) {
		return nil
	}
	if err := r.store.UpdateAddress(ctx, address); err != nil {
		return fmt.Errorf("enrich address: %w", err)
	}
	return nil
}

// applyComponents overwrites the structured fields of an address with every
// changed non-empty value from the payload. Empty payload values never clear
// a stored field. Reports whether anything changed.
func applyComponents(address *models.Address, comps *geocode.Components) bool {
	changed := false
	apply := func(dst *string, src string) {
		src = strings.TrimSpace(src)
		if src != "" && *dst != src {
			*dst = src
			changed = true
		}
	}

	apply(&address.StreetNumber, comps.StreetNumber)
	apply(&address.StreetName, comps.StreetName)
	apply(&address.Route, comps.Route)
	apply(&address.StreetType, comps.StreetType)
	apply(&address.StreetDirection, comps.StreetDirection)
	apply(&address.UnitType, comps.UnitType)
	apply(&address.UnitNumber, comps.UnitNumber)
	apply(&address.Formatted, comps.Formatted)

	if comps.Latitude != nil && (address.Latitude == nil || *address.Latitude != *comps.Latitude) {
		address.Latitude = comps.Latitude
		changed = true
	}
	if comps.Longitude != nil && (address.Longitude == nil || *address.Longitude != *comps.Longitude) {
		address.Longitude = comps.Longitude
		changed = true
	}
	if comps.IsPOBox != nil && address.IsPOBox != *comps.IsPOBox {
		address.IsPOBox = *comps.IsPOBox
		changed = true
	}
	if comps.IsMilitary != nil && address.IsMilitary != *comps.IsMilitary {
		address.IsMilitary = *comps.IsMilitary
		changed = true
	}
	return changed
}

// CreateAddressFromRaw runs the full pipeline on a free-text address:
// geocode (with retries when an Adapter is given), fall back to the regex
// parser, and finally store the raw string alone if nothing structured could
// be extracted.
func (r *Resolver) CreateAddressFromRaw(ctx context.Context, raw string, opts RawOptions) (*models.Address, error) {
	standardized := normalizer.StandardizeAddress(raw)
	if standardized == "" {
		return nil, errors.New("address raw value cannot be blank")
	}

	comps, err := r.geocodeRaw(ctx, standardized, opts)
	if err != nil {
		return nil, err
	}
	if comps != nil && !comps.Empty() {
		// The dedup raw is the standardized provider string, so
		// abbreviation-differing provider outputs converge on one record.
		dedupRaw := standardized
		if formatted := strings.TrimSpace(comps.Formatted); formatted != "" {
			dedupRaw = normalizer.StandardizeAddress(formatted)
		} else {
			comps.Formatted = standardized
		}
		return r.ResolveAddressFromComponents(ctx, dedupRaw, comps)
	}

	if parsed := parseComponents(standardized); len(parsed) > 0 {
		comps := componentsFromParsed(standardized, parsed)
		if !comps.Empty() {
			return r.ResolveAddressFromComponents(ctx, standardized, comps)
		}
	}

	// Nothing structured; keep the raw string so the input is never lost.
	address, err := r.store.FindAddressByRaw(ctx, standardized)
	if err != nil {
		return nil, fmt.Errorf("find address by raw: %w", err)
	}
	if address != nil {
		return address, nil
	}
	created, err := r.store.CreateAddress(ctx, &models.Address{Raw: standardized})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, storage.ErrDuplicate) {
		if existing, ferr := r.store.FindAddressByRaw(ctx, standardized); ferr == nil && existing != nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("create raw address: %w", err)
}

// parseComponents prefers libpostal when it was compiled in; the regex
// parser covers everything else.
func parseComponents(raw string) map[string]string {
	if external.Available {
		if parsed := external.ParseWithLibpostal(raw); len(parsed) > 0 {
			return parsed
		}
	}
	return parser.ParseAddressComponents(raw)
}

// geocodeRaw runs the configured geocoder. A nil, nil return means "no
// result, keep falling back".
func (r *Resolver) geocodeRaw(ctx context.Context, query string, opts RawOptions) (*geocode.Components, error) {
	if opts.Adapter != nil {
		return r.geocodeWithRetry(ctx, query, opts)
	}
	if opts.GeocodeFunc != nil {
		comps, err := opts.GeocodeFunc(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", query, err)
		}
		if comps != nil && comps.Provider == "" {
			comps.Provider = ProviderGeocoder
		}
		return comps, nil
	}
	return nil, nil
}

// geocodeWithRetry retries rate-limited calls with exponential backoff and
// re-raises the rate-limit error once attempts are exhausted. Configuration
// errors always surface; generic errors surface only when asked, and
// otherwise drop through to the parser fallback.
func (r *Resolver) geocodeWithRetry(ctx context.Context, query string, opts RawOptions) (*geocode.Components, error) {
	cfg := opts.Retry
	if cfg.MaxAttempts <= 0 {
		cfg = geocode.DefaultRetryConfig()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	delay := cfg.BaseDelay
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		comps, err := opts.Adapter.Geocode(ctx, query)
		if err == nil {
			return comps, nil
		}

		if geocode.IsRateLimit(err) {
			if attempt == cfg.MaxAttempts {
				return nil, fmt.Errorf("geocode %q: %w", query, err)
			}
			r.logger.Warn("Geocode rate limited, backing off",
				zap.String("provider", opts.Adapter.ProviderName()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			sleep(delay)
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}
		if geocode.IsConfiguration(err) {
			return nil, fmt.Errorf("geocode %q: %w", query, err)
		}
		if opts.SurfaceGeocodeErrors {
			return nil, fmt.Errorf("geocode %q: %w", query, err)
		}
		r.logger.Warn("Geocode failed, falling back to parser",
			zap.String("provider", opts.Adapter.ProviderName()),
			zap.Error(err))
		return nil, nil
	}
	return nil, nil
}

// Renormalize re-runs the parse/geocode pipeline on a stored address's raw
// field and overwrites its structured fields with the result. With zero-value
// opts only the local parser runs. Used after parsing or normalization rules
// change.
func (r *Resolver) Renormalize(ctx context.Context, id primitive.ObjectID, opts RawOptions) (*models.Address, error) {
	address, err := r.store.GetAddress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if address == nil {
		return nil, fmt.Errorf("address %s not found", id.Hex())
	}

	standardized := normalizer.StandardizeAddress(address.Raw)
	if standardized == "" {
		return address, nil
	}

	comps, err := r.geocodeRaw(ctx, standardized, opts)
	if err != nil {
		return nil, err
	}
	if comps == nil || comps.Empty() {
		if parsed := parseComponents(standardized); len(parsed) > 0 {
			comps = componentsFromParsed(standardized, parsed)
		}
	}
	if comps == nil || comps.Empty() {
		return address, nil
	}

	location, err := r.ResolveLocation(ctx, comps.Location)
	if err != nil {
		return nil, err
	}

	changed := applyComponents(address, comps)
	if location.Locality != nil && address.LocalityID != location.Locality.ID {
		address.LocalityID = location.Locality.ID
		changed = true
	}
	if !changed {
		return address, nil
	}
	if err := r.store.UpdateAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("renormalize address: %w", err)
	}
	return address, nil
}

// Detail assembles the address with its resolved hierarchy for read paths.
func (r *Resolver) Detail(ctx context.Context, address *models.Address) (*models.AddressDetail, error) {
	detail := &models.AddressDetail{Address: address}
	if address.LocalityID.IsZero() {
		return detail, nil
	}

	locality, err := r.store.GetLocality(ctx, address.LocalityID)
	if err != nil {
		return nil, fmt.Errorf("get locality: %w", err)
	}
	detail.Locality = locality
	if locality == nil {
		return detail, nil
	}

	state, err := r.store.GetState(ctx, locality.StateID)
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	detail.State = state
	if state == nil {
		return detail, nil
	}

	country, err := r.store.GetCountry(ctx, state.CountryID)
	if err != nil {
		return nil, fmt.Errorf("get country: %w", err)
	}
	detail.Country = country
	return detail, nil
}

// buildAddress materializes a models.Address from a component mapping.
func buildAddress(key storage.AddressDedupKey, comps *geocode.Components) *models.Address {
	address := &models.Address{
		StreetNumber:    key.StreetNumber,
		StreetName:      key.StreetName,
		Route:           strings.TrimSpace(comps.Route),
		StreetType:      strings.TrimSpace(comps.StreetType),
		StreetDirection: strings.TrimSpace(comps.StreetDirection),
		UnitType:        strings.TrimSpace(comps.UnitType),
		UnitNumber:      strings.TrimSpace(comps.UnitNumber),
		LocalityID:      key.LocalityID,
		Raw:             key.Raw,
		Formatted:       strings.TrimSpace(comps.Formatted),
		Latitude:        comps.Latitude,
		Longitude:       comps.Longitude,
	}
	if comps.IsPOBox != nil {
		address.IsPOBox = *comps.IsPOBox
	}
	if comps.IsMilitary != nil {
		address.IsMilitary = *comps.IsMilitary
	}
	return address
}

// rawForComponents picks the dedup raw string for a component mapping: the
// provider's formatted string when present, otherwise a rendering of the
// components themselves.
func rawForComponents(comps *geocode.Components) string {
	if formatted := strings.TrimSpace(comps.Formatted); formatted != "" {
		return formatted
	}
	return formatter.FormatUSAddress(comps, ", ")
}

// componentsFromParsed lifts the regex parser's output into a component
// mapping attributed to the parser provider.
func componentsFromParsed(standardized string, parsed map[string]string) *geocode.Components {
	comps := &geocode.Components{
		StreetNumber:    parsed[parser.KeyStreetNumber],
		StreetName:      parsed[parser.KeyStreetName],
		StreetType:      parsed[parser.KeyStreetType],
		StreetDirection: parsed[parser.KeyStreetDirection],
		UnitType:        parsed[parser.KeyUnitType],
		UnitNumber:      parsed[parser.KeyUnitNumber],
		Formatted:       standardized,
		Provider:        ProviderParser,
		Location: geocode.Location{
			Locality:   parsed[parser.KeyCity],
			StateCode:  parsed[parser.KeyState],
			PostalCode: parsed[parser.KeyZipcode],
		},
		RawPayload: map[string]any{"query": standardized},
	}
	if box, ok := parsed[parser.KeyPOBox]; ok && box != "" {
		yes := true
		comps.IsPOBox = &yes
		comps.Metadata = map[string]any{"po_box": box}
	}
	return comps
}
