// Package geocode defines the pluggable geocoding capability consumed by the
// address resolver, plus adapters for the supported providers.
//
// Adapters stay intentionally thin so projects can swap HTTP clients and
// authentication while sharing the retry and rate-limit handling inside
// resolver.CreateAddressFromRaw.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind distinguishes the three failure classes the resolver cares about.
type ErrorKind int

const (
	// KindGeneric marks a non-recoverable geocoding failure; the resolver
	// falls back to the local parser.
	KindGeneric ErrorKind = iota
	// KindConfiguration marks adapter misconfiguration (missing credentials);
	// raised at construction, fatal for that adapter instance.
	KindConfiguration
	// KindRateLimit marks a transient provider rate limit; retried with
	// backoff.
	KindRateLimit
)

// Error is the tagged error type raised by geocode adapters.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is a rate-limit geocode failure.
func IsRateLimit(err error) bool { return hasKind(err, KindRateLimit) }

// IsConfiguration reports whether err is an adapter configuration failure.
func IsConfiguration(err error) bool { return hasKind(err, KindConfiguration) }

func hasKind(err error, kind ErrorKind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// Location carries the country/state/locality portion of a geocode result.
type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	State       string `json:"state"`
	StateCode   string `json:"state_code"`
	Locality    string `json:"locality"`
	PostalCode  string `json:"postal_code"`
}

// Components is the normalized mapping every adapter produces. RawPayload and
// Metadata are kept opaque for provenance recording.
type Components struct {
	StreetNumber    string         `json:"street_number"`
	StreetName      string         `json:"street_name"`
	Route           string         `json:"route"`
	StreetType      string         `json:"street_type"`
	StreetDirection string         `json:"street_direction"`
	UnitType        string         `json:"unit_type"`
	UnitNumber      string         `json:"unit_number"`
	Formatted       string         `json:"formatted"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	IsPOBox         *bool          `json:"is_po_box,omitempty"`
	IsMilitary      *bool          `json:"is_military,omitempty"`
	Location        Location       `json:"location"`
	Provider        string         `json:"provider"`
	RawPayload      map[string]any `json:"raw_payload,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Empty reports whether the result carries no usable address data.
func (c *Components) Empty() bool {
	if c == nil {
		return true
	}
	return c.StreetNumber == "" && c.StreetName == "" && c.Route == "" &&
		c.Formatted == "" && c.Location == (Location{})
}

// Adapter is the single-operation geocoding capability. Implementations must
// raise *Error with KindRateLimit for retryable throttling and KindGeneric
// for everything else at call time.
type Adapter interface {
	// Geocode resolves the query into normalized components.
	Geocode(ctx context.Context, query string) (*Components, error)

	// ProviderName identifies the provider in provenance records.
	ProviderName() string
}

// Func is a plain geocode callable accepted by the resolver when no adapter
// (and therefore no retry handling) is wanted.
type Func func(ctx context.Context, query string) (*Components, error)

// RetryConfig bounds the rate-limit retry loop.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryConfig mirrors the historical defaults: 3 attempts, 500ms base
// delay doubling up to 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}
