package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const loqateEndpoint = "https://api.addressy.com/Capture/Interactive/Find/v1.10/json3.ws"

// Loqate error codes that indicate throttling rather than a hard failure.
var loqateRateLimitCodes = map[string]struct{}{
	"1006": {},
	"1023": {},
	"429":  {},
}

// LoqateAdapter geocodes through Loqate's Interactive Find service.
type LoqateAdapter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// LoqateOption customizes a LoqateAdapter.
type LoqateOption func(*LoqateAdapter)

// WithLoqateHTTPClient overrides the HTTP client (used by tests).
func WithLoqateHTTPClient(client *http.Client) LoqateOption {
	return func(l *LoqateAdapter) { l.httpClient = client }
}

// WithLoqateEndpoint overrides the API endpoint (used by tests).
func WithLoqateEndpoint(endpoint string) LoqateOption {
	return func(l *LoqateAdapter) { l.endpoint = endpoint }
}

// NewLoqateAdapter builds the adapter; a missing API key is a configuration
// failure.
func NewLoqateAdapter(apiKey string, opts ...LoqateOption) (*LoqateAdapter, error) {
	l := &LoqateAdapter{
		apiKey:     apiKey,
		endpoint:   loqateEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.apiKey == "" {
		return nil, &Error{
			Kind:     KindConfiguration,
			Provider: l.ProviderName(),
			Message:  "Loqate API key is required",
		}
	}
	return l, nil
}

// ProviderName implements Adapter.
func (l *LoqateAdapter) ProviderName() string { return "loqate" }

type loqatePayload struct {
	Items   []map[string]any `json:"Items"`
	Matches []map[string]any `json:"Matches"`
	Input   map[string]any   `json:"Input"`
}

// Geocode implements Adapter.
func (l *LoqateAdapter) Geocode(ctx context.Context, query string) (*Components, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Kind: KindGeneric, Provider: l.ProviderName(), Message: "geocode query cannot be empty"}
	}

	params := url.Values{}
	params.Set("Key", l.apiKey)
	params.Set("Text", query)
	params.Set("IsMiddleware", "false")
	params.Set("Countries", "USA")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: l.ProviderName(), Message: "build request", Err: err}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: l.ProviderName(), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimit, Provider: l.ProviderName(), Message: "rate limit exceeded (HTTP 429)"}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{
			Kind:     KindGeneric,
			Provider: l.ProviderName(),
			Message:  fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	var payload loqatePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &Error{Kind: KindGeneric, Provider: l.ProviderName(), Message: "decode response", Err: err}
	}

	// Verify/Geocode style responses carry Matches.
	if len(payload.Matches) > 0 {
		match := payload.Matches[0]
		normalized := l.normalizeMatch(match)
		normalized.Provider = l.ProviderName()
		normalized.RawPayload = map[string]any{"matches": payload.Matches, "input": payload.Input}
		normalized.Metadata = map[string]any{
			"aqi":        match["AQI"],
			"avc":        match["AVC"],
			"match_rule": match["MatchRuleLabel"],
			"sequence":   match["Sequence"],
			"input":      payload.Input,
		}
		return normalized, nil
	}

	if len(payload.Items) == 0 {
		return &Components{Provider: l.ProviderName()}, nil
	}

	first := payload.Items[0]
	if errCode := asString(first["Error"]); errCode != "" {
		description := asString(first["Description"])
		if _, limited := loqateRateLimitCodes[strings.ToUpper(errCode)]; limited {
			if description == "" {
				description = "Loqate rate limit exceeded"
			}
			return nil, &Error{Kind: KindRateLimit, Provider: l.ProviderName(), Message: description}
		}
		if description == "" {
			description = "Loqate error " + errCode
		}
		return nil, &Error{Kind: KindGeneric, Provider: l.ProviderName(), Message: description}
	}

	normalized := l.normalizeItem(first)
	normalized.Provider = l.ProviderName()
	normalized.RawPayload = first
	normalized.Metadata = map[string]any{
		"id":    first["Id"],
		"type":  first["Type"],
		"input": payload.Input,
	}
	return normalized, nil
}

// normalizeItem converts an Interactive Find item into the normalized
// mapping. Loqate requires a follow-up Retrieve call for full components, but
// the interactive lookup already contains enough for resolution.
func (l *LoqateAdapter) normalizeItem(item map[string]any) *Components {
	state := asString(item["ProvinceName"])
	if state == "" {
		state = asString(item["Province"])
	}

	return &Components{
		StreetNumber: asString(item["BuildingNumber"]),
		StreetName:   asString(item["Street"]),
		StreetType:   asString(item["StreetType"]),
		UnitType:     asString(item["SecondaryStreetType"]),
		UnitNumber:   asString(item["SecondaryStreetNumber"]),
		Formatted:    asString(item["Text"]),
		Latitude:     asFloat(item["Latitude"]),
		Longitude:    asFloat(item["Longitude"]),
		Location: Location{
			Locality:    asString(item["City"]),
			State:       state,
			StateCode:   asString(item["Province"]),
			PostalCode:  asString(item["PostalCode"]),
			Country:     asString(item["CountryName"]),
			CountryCode: asString(item["CountryIso2"]),
		},
	}
}

// normalizeMatch converts a Verify/Matches payload.
func (l *LoqateAdapter) normalizeMatch(match map[string]any) *Components {
	streetNumber := asString(match["PremiseNumber"])
	if streetNumber == "" {
		streetNumber = asString(match["Premise"])
	}
	thoroughfare := asString(match["Thoroughfare"])
	formatted := asString(match["Address"])
	if formatted == "" {
		formatted = asString(match["DeliveryAddress"])
	}

	return &Components{
		StreetNumber: streetNumber,
		StreetName:   thoroughfare,
		Route:        thoroughfare,
		UnitNumber:   asString(match["SubPremise"]),
		Formatted:    formatted,
		Latitude:     asFloat(match["Latitude"]),
		Longitude:    asFloat(match["Longitude"]),
		Location: Location{
			Locality:    asString(match["Locality"]),
			State:       asString(match["AdministrativeArea"]),
			StateCode:   asString(match["AdministrativeArea"]),
			PostalCode:  asString(match["PostalCode"]),
			Country:     asString(match["CountryName"]),
			CountryCode: asString(match["Country"]),
		},
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
	default:
		return ""
	}
}

func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		var f float64
		if _, err := fmt.Sscanf(t, "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}
