package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/address-kit/internal/constants"
)

const googleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleAdapter geocodes through the Google Maps Geocoding API and translates
// its component payloads into the normalized mapping.
type GoogleAdapter struct {
	apiKey            string
	endpoint          string
	httpClient        *http.Client
	rateLimitStatuses map[string]struct{}
}

// GoogleOption customizes a GoogleAdapter.
type GoogleOption func(*GoogleAdapter)

// WithGoogleHTTPClient overrides the HTTP client (used by tests).
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(g *GoogleAdapter) { g.httpClient = client }
}

// WithGoogleEndpoint overrides the API endpoint (used by tests).
func WithGoogleEndpoint(endpoint string) GoogleOption {
	return func(g *GoogleAdapter) { g.endpoint = endpoint }
}

// WithGoogleRateLimitStatuses overrides the response statuses treated as rate
// limiting.
func WithGoogleRateLimitStatuses(statuses ...string) GoogleOption {
	return func(g *GoogleAdapter) {
		g.rateLimitStatuses = make(map[string]struct{}, len(statuses))
		for _, s := range statuses {
			g.rateLimitStatuses[strings.ToUpper(s)] = struct{}{}
		}
	}
}

// NewGoogleAdapter builds the adapter; a missing API key is a configuration
// failure raised here, not at call time.
func NewGoogleAdapter(apiKey string, opts ...GoogleOption) (*GoogleAdapter, error) {
	g := &GoogleAdapter{
		apiKey:     apiKey,
		endpoint:   googleEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		rateLimitStatuses: map[string]struct{}{
			"OVER_QUERY_LIMIT": {},
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.apiKey == "" {
		return nil, &Error{
			Kind:     KindConfiguration,
			Provider: g.ProviderName(),
			Message:  "Google Maps API key is required",
		}
	}
	return g, nil
}

// ProviderName implements Adapter.
func (g *GoogleAdapter) ProviderName() string { return "google" }

type googleResponse struct {
	Status  string         `json:"status"`
	Results []googleResult `json:"results"`
}

type googleResult struct {
	AddressComponents []googleComponent `json:"address_components"`
	FormattedAddress  string            `json:"formatted_address"`
	Geometry          map[string]any    `json:"geometry"`
	PlaceID           string            `json:"place_id"`
	Types             []string          `json:"types"`
	PlusCode          map[string]any    `json:"plus_code"`
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Geocode implements Adapter.
func (g *GoogleAdapter) Geocode(ctx context.Context, query string) (*Components, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Kind: KindGeneric, Provider: g.ProviderName(), Message: "geocode query cannot be empty"}
	}

	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: g.ProviderName(), Message: "build request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: g.ProviderName(), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimit, Provider: g.ProviderName(), Message: "rate limit exceeded (HTTP 429)"}
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: g.ProviderName(), Message: "decode response", Err: err}
	}

	if _, limited := g.rateLimitStatuses[strings.ToUpper(decoded.Status)]; limited {
		return nil, &Error{
			Kind:     KindRateLimit,
			Provider: g.ProviderName(),
			Message:  fmt.Sprintf("rate limit exceeded: %s", decoded.Status),
		}
	}
	if decoded.Status != "OK" && decoded.Status != "ZERO_RESULTS" {
		return nil, &Error{
			Kind:     KindGeneric,
			Provider: g.ProviderName(),
			Message:  fmt.Sprintf("API error: %s", decoded.Status),
		}
	}
	if len(decoded.Results) == 0 {
		return &Components{Provider: g.ProviderName()}, nil
	}

	result := decoded.Results[0]
	return g.normalizeResult(query, result, decoded), nil
}

func (g *GoogleAdapter) normalizeResult(query string, result googleResult, decoded googleResponse) *Components {
	comps := g.normalizeComponents(result.AddressComponents)

	var lat, lng *float64
	locationType := ""
	var viewport any
	if location, ok := result.Geometry["location"].(map[string]any); ok {
		if v, ok := location["lat"].(float64); ok {
			lat = &v
		}
		if v, ok := location["lng"].(float64); ok {
			lng = &v
		}
	}
	if v, ok := result.Geometry["location_type"].(string); ok {
		locationType = v
	}
	viewport = result.Geometry["viewport"]

	streetName := comps.StreetName
	if streetName == "" {
		streetName = comps.Route
	}

	rawResults := make([]any, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		rawResults = append(rawResults, map[string]any{
			"formatted_address": r.FormattedAddress,
			"place_id":          r.PlaceID,
			"types":             r.Types,
		})
	}

	out := &Components{
		StreetNumber:    comps.StreetNumber,
		StreetName:      streetName,
		Route:           comps.Route,
		StreetType:      comps.StreetType,
		StreetDirection: comps.StreetDirection,
		UnitType:        comps.UnitType,
		UnitNumber:      comps.UnitNumber,
		Formatted:       result.FormattedAddress,
		Latitude:        lat,
		Longitude:       lng,
		Location:        comps.Location,
		Provider:        g.ProviderName(),
		RawPayload: map[string]any{
			"query":   query,
			"results": rawResults,
		},
		Metadata: map[string]any{
			"place_id":      result.PlaceID,
			"types":         result.Types,
			"location_type": locationType,
			"viewport":      viewport,
			"plus_code":     result.PlusCode,
		},
	}
	out.IsPOBox = comps.IsPOBox
	out.IsMilitary = comps.IsMilitary
	return out
}

// normalizeComponents translates Google address_components into normalized
// keys.
func (g *GoogleAdapter) normalizeComponents(components []googleComponent) *Components {
	out := &Components{}

	for _, component := range components {
		types := make(map[string]struct{}, len(component.Types))
		for _, t := range component.Types {
			types[t] = struct{}{}
		}

		if _, ok := types["street_number"]; ok {
			out.StreetNumber = component.LongName
		}
		if _, ok := types["route"]; ok {
			out.Route = component.LongName
			name, streetType, direction := splitRoute(component.LongName)
			if out.StreetName == "" {
				out.StreetName = name
			}
			if out.StreetType == "" && streetType != "" {
				out.StreetType = streetType
			}
			if out.StreetDirection == "" && direction != "" {
				out.StreetDirection = direction
			}
		}
		if _, ok := types["postal_code"]; ok {
			out.Location.PostalCode = component.LongName
		}
		if _, ok := types["locality"]; ok {
			out.Location.Locality = component.LongName
		}
		if _, ok := types["administrative_area_level_1"]; ok {
			out.Location.State = component.LongName
			out.Location.StateCode = component.ShortName
			if constants.IsMilitaryState(component.ShortName) {
				yes := true
				out.IsMilitary = &yes
			}
		}
		if _, ok := types["country"]; ok {
			out.Location.Country = component.LongName
			out.Location.CountryCode = component.ShortName
		}
		if _, ok := types["subpremise"]; ok {
			out.UnitType = "Unit"
			out.UnitNumber = component.LongName
		}
		if _, ok := types["post_box"]; ok {
			yes := true
			out.IsPOBox = &yes
		}
	}

	return out
}

// splitRoute naively splits a route into name, type, and direction.
func splitRoute(route string) (name, streetType, direction string) {
	if route == "" {
		return "", "", ""
	}

	parts := strings.Fields(route)
	if len(parts) == 1 {
		return parts[0], "", ""
	}

	if constants.IsCardinalDirection(parts[0]) {
		direction = strings.ToUpper(parts[0])
		parts = parts[1:]
	}

	streetType = parts[len(parts)-1]
	if len(parts) > 1 {
		name = strings.Join(parts[:len(parts)-1], " ")
	} else {
		name = parts[0]
		streetType = ""
	}
	return strings.TrimSpace(name), streetType, direction
}
