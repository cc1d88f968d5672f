package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/constants"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/normalizer"
	"github.com/address-kit/internal/storage"
)

const (
	defaultCountryName = "United States"
	defaultCountryCode = "US"
)

// ResolvedLocation is the outcome of resolving a location payload. Any level
// may be nil when the payload carried nothing for it.
type ResolvedLocation struct {
	Country  *models.Country
	State    *models.State
	Locality *models.Locality
}

// ResolveCountry finds or creates a country, preferring the ISO code over
// the name. When a match is found by one key and the other key is missing on
// the stored record, the missing value is backfilled. An empty payload
// defaults to the United States.
func (r *Resolver) ResolveCountry(ctx context.Context, loc geocode.Location) (*models.Country, error) {
	code := strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	name := normalizer.NormalizeString(loc.Country)
	if code == "" && name == "" {
		code = defaultCountryCode
		name = defaultCountryName
	}

	if code != "" {
		country, err := r.store.FindCountryByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("find country by code: %w", err)
		}
		if country != nil {
			if country.Name == "" && name != "" {
				country.Name = name
				if err := r.store.UpdateCountry(ctx, country); err != nil {
					return nil, fmt.Errorf("backfill country name: %w", err)
				}
			}
			return country, nil
		}
	}

	if name != "" {
		country, err := r.store.FindCountryByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find country by name: %w", err)
		}
		if country != nil {
			if country.Code == "" && code != "" {
				country.Code = code
				if err := r.store.UpdateCountry(ctx, country); err != nil {
					return nil, fmt.Errorf("backfill country code: %w", err)
				}
			}
			return country, nil
		}
	}

	created, err := r.store.CreateCountry(ctx, &models.Country{Name: name, Code: code})
	if err == nil {
		r.logger.Debug("Created country", zap.String("name", name), zap.String("code", code))
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("create country: %w", err)
	}

	// Lost the insert race; the winner's record is now visible.
	if code != "" {
		if country, ferr := r.store.FindCountryByCode(ctx, code); ferr == nil && country != nil {
			return country, nil
		}
	}
	country, ferr := r.store.FindCountryByName(ctx, name)
	if ferr != nil {
		return nil, fmt.Errorf("re-find country after duplicate: %w", ferr)
	}
	if country == nil {
		return nil, fmt.Errorf("create country: %w", err)
	}
	return country, nil
}

// ResolveState finds or creates a state scoped to a country. The code takes
// precedence over the name; a missing code is recovered from the name via
// the US state table (with fuzzy matching for typos). Creating a state
// without a country is a hard failure, never a silent skip. Returns
// (nil, nil) when the payload has no state at all.
func (r *Resolver) ResolveState(ctx context.Context, country *models.Country, loc geocode.Location) (*models.State, error) {
	name := normalizer.NormalizeString(loc.State)
	code := strings.ToUpper(strings.TrimSpace(loc.StateCode))
	if name == "" && code == "" {
		return nil, nil
	}
	if country == nil {
		return nil, fmt.Errorf("cannot resolve state %q without a country", firstNonEmpty(code, name))
	}

	// The name slot sometimes carries a bare code ("CA") and vice versa.
	if code == "" {
		if matched, ok := constants.MatchStateName(name); ok {
			code = matched
		}
	}
	if name == "" {
		if long, ok := constants.USStates[code]; ok {
			name = long
		} else if long, ok := constants.USTerritories[code]; ok {
			name = long
		} else if long, ok := constants.MilitaryStates[code]; ok {
			name = long
		}
	}

	if code != "" {
		state, err := r.store.FindStateByCode(ctx, country.ID, code)
		if err != nil {
			return nil, fmt.Errorf("find state by code: %w", err)
		}
		if state != nil {
			return state, nil
		}
	}
	if name != "" {
		state, err := r.store.FindStateByName(ctx, country.ID, name)
		if err != nil {
			return nil, fmt.Errorf("find state by name: %w", err)
		}
		if state != nil {
			return state, nil
		}
	}

	// The model requires both fields; mirror whichever one we have.
	if code == "" {
		code = strings.ToUpper(name)
	}
	if name == "" {
		name = code
	}

	created, err := r.store.CreateState(ctx, &models.State{Name: name, Code: code, CountryID: country.ID})
	if err == nil {
		r.logger.Debug("Created state",
			zap.String("name", name),
			zap.String("code", code),
			zap.String("country", country.String()))
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("create state: %w", err)
	}

	if state, ferr := r.store.FindStateByCode(ctx, country.ID, code); ferr == nil && state != nil {
		return state, nil
	}
	state, ferr := r.store.FindStateByName(ctx, country.ID, name)
	if ferr != nil {
		return nil, fmt.Errorf("re-find state after duplicate: %w", ferr)
	}
	if state == nil {
		return nil, fmt.Errorf("create state: %w", err)
	}
	return state, nil
}

// ResolveLocality finds or creates a locality scoped to a state. The match
// key is (name, postal code); the same city name under two postal codes is
// two localities. Returns (nil, nil) when the payload has neither a city
// nor a postal code.
func (r *Resolver) ResolveLocality(ctx context.Context, state *models.State, loc geocode.Location) (*models.Locality, error) {
	name := normalizer.NormalizeString(loc.Locality)
	postal := strings.TrimSpace(loc.PostalCode)
	if name == "" && postal == "" {
		return nil, nil
	}
	if state == nil {
		return nil, fmt.Errorf("cannot resolve locality %q without a state", firstNonEmpty(name, postal))
	}

	locality, err := r.store.FindLocality(ctx, state.ID, name, postal)
	if err != nil {
		return nil, fmt.Errorf("find locality: %w", err)
	}
	if locality != nil {
		return locality, nil
	}

	created, err := r.store.CreateLocality(ctx, &models.Locality{Name: name, PostalCode: postal, StateID: state.ID})
	if err == nil {
		r.logger.Debug("Created locality",
			zap.String("name", name),
			zap.String("postal_code", postal),
			zap.String("state", state.Label()))
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("create locality: %w", err)
	}

	locality, ferr := r.store.FindLocality(ctx, state.ID, name, postal)
	if ferr != nil {
		return nil, fmt.Errorf("re-find locality after duplicate: %w", ferr)
	}
	if locality == nil {
		return nil, fmt.Errorf("create locality: %w", err)
	}
	return locality, nil
}

// ResolveLocation walks the hierarchy top-down, resolving as deep as the
// payload allows. A payload naming a locality without any state fails, since
// localities cannot float free of the hierarchy.
func (r *Resolver) ResolveLocation(ctx context.Context, loc geocode.Location) (*ResolvedLocation, error) {
	out := &ResolvedLocation{}
	if isEmptyLocation(loc) {
		return out, nil
	}

	country, err := r.ResolveCountry(ctx, loc)
	if err != nil {
		return nil, err
	}
	out.Country = country

	state, err := r.ResolveState(ctx, country, loc)
	if err != nil {
		return nil, err
	}
	out.State = state
	if state == nil {
		if strings.TrimSpace(loc.Locality) != "" || strings.TrimSpace(loc.PostalCode) != "" {
			return nil, fmt.Errorf("location %q has a locality but no state", loc.Locality)
		}
		return out, nil
	}

	locality, err := r.ResolveLocality(ctx, state, loc)
	if err != nil {
		return nil, err
	}
	out.Locality = locality
	return out, nil
}

func isEmptyLocation(loc geocode.Location) bool {
	return strings.TrimSpace(loc.Country) == "" &&
		strings.TrimSpace(loc.CountryCode) == "" &&
		strings.TrimSpace(loc.State) == "" &&
		strings.TrimSpace(loc.StateCode) == "" &&
		strings.TrimSpace(loc.Locality) == "" &&
		strings.TrimSpace(loc.PostalCode) == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
