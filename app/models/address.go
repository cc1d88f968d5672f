package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var poBoxHint = regexp.MustCompile(`(?i)\b(?:p\.?\s*o\.?\s*box|post\s+office\s+box)\b`)

// Address is a deduplicated postal address. The raw input string is the only
// required field; everything else is parsed or geocoded enrichment. Route and
// StreetName are kept in sync: whichever is populated fills the other.
type Address struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StreetNumber    string             `bson:"street_number" json:"street_number"`
	Route           string             `bson:"route" json:"route"`
	StreetName      string             `bson:"street_name" json:"street_name"`
	StreetType      string             `bson:"street_type" json:"street_type"`
	StreetDirection string             `bson:"street_direction" json:"street_direction"`
	UnitType        string             `bson:"unit_type" json:"unit_type"`
	UnitNumber      string             `bson:"unit_number" json:"unit_number"`
	IsPOBox         bool               `bson:"is_po_box" json:"is_po_box"`
	IsMilitary      bool               `bson:"is_military" json:"is_military"`
	LocalityID      primitive.ObjectID `bson:"locality_id,omitempty" json:"locality_id,omitempty"`
	Raw             string             `bson:"raw" json:"raw"`
	Formatted       string             `bson:"formatted" json:"formatted"`
	Latitude        *float64           `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude       *float64           `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// Normalize trims fields, syncs the route/street_name aliases, auto-detects
// PO boxes from the raw text, and validates that raw is present. It runs
// before every save.
func (a *Address) Normalize() error {
	a.Raw = strings.TrimSpace(a.Raw)
	if a.Raw == "" {
		return errors.New("address raw value cannot be blank")
	}

	a.StreetNumber = strings.TrimSpace(a.StreetNumber)
	a.Route = strings.TrimSpace(a.Route)
	a.StreetName = strings.TrimSpace(a.StreetName)
	a.StreetType = strings.TrimSpace(a.StreetType)
	a.StreetDirection = strings.ToUpper(strings.TrimSpace(a.StreetDirection))
	a.UnitType = strings.TrimSpace(a.UnitType)
	a.UnitNumber = strings.TrimSpace(a.UnitNumber)
	a.Formatted = strings.TrimSpace(a.Formatted)

	// Route and StreetName are aliases; keep both populated.
	if a.Route == "" && a.StreetName != "" {
		a.Route = a.StreetName
	}
	if a.StreetName == "" && a.Route != "" {
		a.StreetName = a.Route
	}

	if a.Formatted == "" {
		a.Formatted = a.Raw
	}

	if !a.IsPOBox && poBoxHint.MatchString(a.Raw) {
		a.IsPOBox = true
	}
	return nil
}

// String returns the display form: formatted if set, raw otherwise.
func (a *Address) String() string {
	if a.Formatted != "" {
		return a.Formatted
	}
	return a.Raw
}

// HasStreet reports whether any structured street component is populated.
func (a *Address) HasStreet() bool {
	return a.StreetNumber != "" || a.StreetName != "" || a.Route != ""
}

// AddressDetail bundles an Address with its resolved location hierarchy for
// read paths. Locality, State, and Country may be nil when the address was
// stored raw-only.
type AddressDetail struct {
	Address  *Address  `json:"address"`
	Locality *Locality `json:"locality,omitempty"`
	State    *State    `json:"state,omitempty"`
	Country  *Country  `json:"country,omitempty"`
}

// PostalCode reads through to the locality's postal code; empty when the
// address has no locality.
func (d *AddressDetail) PostalCode() string {
	if d.Locality == nil {
		return ""
	}
	return d.Locality.PostalCode
}

// SetPostalCode writes through to the locality. Setting a postal code on an
// address without a locality is an error, not a silent no-op.
func (d *AddressDetail) SetPostalCode(code string) error {
	if d.Locality == nil {
		return fmt.Errorf("cannot set postal code %q: address has no locality", code)
	}
	d.Locality.PostalCode = strings.TrimSpace(code)
	return nil
}

// AsDict flattens the detail into a single map, mirroring the shape returned
// by the HTTP API.
func (d *AddressDetail) AsDict() map[string]any {
	out := map[string]any{
		"street_number":    d.Address.StreetNumber,
		"route":            d.Address.Route,
		"street_name":      d.Address.StreetName,
		"street_type":      d.Address.StreetType,
		"street_direction": d.Address.StreetDirection,
		"unit_type":        d.Address.UnitType,
		"unit_number":      d.Address.UnitNumber,
		"is_po_box":        d.Address.IsPOBox,
		"is_military":      d.Address.IsMilitary,
		"raw":              d.Address.Raw,
		"formatted":        d.Address.Formatted,
		"latitude":         d.Address.Latitude,
		"longitude":        d.Address.Longitude,
		"locality":         "",
		"postal_code":      "",
		"state":            "",
		"state_code":       "",
		"country":          "",
		"country_code":     "",
	}
	if d.Locality != nil {
		out["locality"] = d.Locality.Name
		out["postal_code"] = d.Locality.PostalCode
	}
	if d.State != nil {
		out["state"] = d.State.Name
		out["state_code"] = d.State.Code
	}
	if d.Country != nil {
		out["country"] = d.Country.Name
		out["country_code"] = d.Country.Code
	}
	return out
}
