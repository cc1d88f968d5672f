// Package ingest imports legacy address records whose field names vary by
// source system, mapping known aliases onto the normalized pipeline.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/normalizer"
	"github.com/address-kit/internal/parser"
	"github.com/address-kit/internal/resolver"
)

// ProviderLegacy attributes provenance for records imported through this
// package.
const ProviderLegacy = "legacy"

// Field aliases observed across legacy exports. First populated alias wins.
var (
	streetAliases      = []string{"line1", "street", "address1", "street_address"}
	unitAliases        = []string{"line2", "unit", "suite", "apartment", "apt"}
	cityAliases        = []string{"city", "locality", "town"}
	stateNameAliases   = []string{"state", "state_name"}
	stateCodeAliases   = []string{"state_code", "province", "state_iso"}
	postalAliases      = []string{"postal_code", "zip", "zipcode", "postcode"}
	countryAliases     = []string{"country", "country_name"}
	countryCodeAliases = []string{"country_code", "country_iso"}
)

// Ingester maps legacy records onto resolver calls. The geocode adapter is
// optional; without one, raw-only records go straight to the parser.
type Ingester struct {
	resolver *resolver.Resolver
	adapter  geocode.Adapter
	logger   *zap.Logger
}

// New builds an Ingester. A nil logger is replaced with a no-op logger.
func New(res *resolver.Resolver, adapter geocode.Adapter, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{resolver: res, adapter: adapter, logger: logger}
}

// Record is one legacy row, keyed by whatever the source system called its
// fields.
type Record map[string]any

// Failure pairs a failed record's position with its error.
type Failure struct {
	Index int
	Err   error
}

// BatchResult summarizes an IngestBatch run.
type BatchResult struct {
	Resolved []*models.Address
	Failures []Failure
}

// IngestLegacyAddress resolves one legacy record. Records with both a street
// line and a locality (or postal code) take the structured path; anything
// else is treated as free text and run through the raw pipeline.
func (i *Ingester) IngestLegacyAddress(ctx context.Context, record Record) (*models.Address, error) {
	street := firstValue(record, streetAliases)
	city := firstValue(record, cityAliases)
	postal := firstValue(record, postalAliases)

	if street != "" && (city != "" || postal != "") {
		comps := i.buildComponents(record, street, city, postal)
		return i.resolver.ResolveAddressFromComponents(ctx, comps.Formatted, comps)
	}

	raw := buildRawString(record, street, city, postal)
	if raw == "" {
		return nil, fmt.Errorf("legacy record has no usable address fields")
	}
	return i.resolver.CreateAddressFromRaw(ctx, raw, resolver.RawOptions{Adapter: i.adapter})
}

// IngestBatch resolves records one by one, collecting per-record failures
// instead of aborting the run.
func (i *Ingester) IngestBatch(ctx context.Context, records []Record) (*BatchResult, error) {
	result := &BatchResult{}
	for idx, record := range records {
		address, err := i.IngestLegacyAddress(ctx, record)
		if err != nil {
			i.logger.Warn("Legacy record failed", zap.Int("index", idx), zap.Error(err))
			result.Failures = append(result.Failures, Failure{Index: idx, Err: err})
			continue
		}
		result.Resolved = append(result.Resolved, address)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// buildComponents assembles a component mapping for the structured path: the
// street line is split by the regex parser, everything else comes from the
// aliased fields.
func (i *Ingester) buildComponents(record Record, street, city, postal string) *geocode.Components {
	comps := &geocode.Components{
		Provider:  ProviderLegacy,
		Formatted: buildRawString(record, street, city, postal),
		Location: geocode.Location{
			Locality:    city,
			State:       firstValue(record, stateNameAliases),
			StateCode:   firstValue(record, stateCodeAliases),
			PostalCode:  postal,
			Country:     firstValue(record, countryAliases),
			CountryCode: firstValue(record, countryCodeAliases),
		},
		RawPayload: map[string]any(record),
	}

	parsed := parser.ParseAddressComponents(street)
	comps.StreetNumber = parsed[parser.KeyStreetNumber]
	comps.StreetName = parsed[parser.KeyStreetName]
	comps.StreetType = parsed[parser.KeyStreetType]
	comps.StreetDirection = parsed[parser.KeyStreetDirection]
	comps.UnitType = parsed[parser.KeyUnitType]
	comps.UnitNumber = parsed[parser.KeyUnitNumber]
	if comps.StreetName == "" {
		comps.StreetName = street
	}
	if box, ok := parsed[parser.KeyPOBox]; ok && box != "" {
		yes := true
		comps.IsPOBox = &yes
	}

	// A dedicated unit field overrides anything embedded in the street line.
	if unit := firstValue(record, unitAliases); unit != "" {
		unitParsed := parser.ParseAddressComponents(unit)
		if unitParsed[parser.KeyUnitNumber] != "" {
			comps.UnitType = unitParsed[parser.KeyUnitType]
			comps.UnitNumber = unitParsed[parser.KeyUnitNumber]
		} else {
			comps.UnitNumber = unit
		}
	}
	return comps
}

// buildRawString joins whatever parts the record carries into one display
// line.
func buildRawString(record Record, street, city, postal string) string {
	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	if unit := firstValue(record, unitAliases); unit != "" {
		parts = append(parts, unit)
	}
	if city != "" {
		parts = append(parts, city)
	}
	state := firstValue(record, stateCodeAliases)
	if state == "" {
		state = firstValue(record, stateNameAliases)
	}
	region := strings.TrimSpace(state + " " + postal)
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

// firstValue returns the first non-empty aliased field, whitespace-collapsed.
func firstValue(record Record, aliases []string) string {
	for _, alias := range aliases {
		v, ok := record[alias]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if normalized := normalizer.NormalizeString(s); normalized != "" {
			return normalized
		}
	}
	return ""
}
