// Package formatter renders structured address components back into display
// strings.
package formatter

import (
	"regexp"
	"strings"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
)

// DefaultSeparator joins the line-level parts of a single-line address.
const DefaultSeparator = ", "

// Compact display abbreviations for the most common street types.
var compactTypes = map[string]string{
	"Street":    "St.",
	"Avenue":    "Ave.",
	"Boulevard": "Blvd.",
	"Drive":     "Dr.",
	"Lane":      "Ln.",
	"Road":      "Rd.",
	"Circle":    "Cir.",
	"Court":     "Ct.",
	"Place":     "Pl.",
	"Terrace":   "Ter.",
	"Parkway":   "Pkwy.",
	"Highway":   "Hwy.",
}

var spaceRun = regexp.MustCompile(`\s+`)

// FormatUSAddress renders a component mapping as a single line:
// street part, unit part, locality, state+zip. Empty components are simply
// omitted; an all-empty mapping yields "".
func FormatUSAddress(comps *geocode.Components, separator string) string {
	if comps == nil {
		return ""
	}
	if separator == "" {
		separator = DefaultSeparator
	}

	var parts []string
	if street := streetLine(comps); street != "" {
		parts = append(parts, street)
	}
	if unit := unitLine(comps.UnitType, comps.UnitNumber); unit != "" {
		parts = append(parts, unit)
	}
	if locality := strings.TrimSpace(comps.Location.Locality); locality != "" {
		parts = append(parts, locality)
	}
	if region := regionLine(comps.Location); region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, separator)
}

// FormatMultiline renders the classic two-line postal form: street and unit
// on the first line, locality/state/zip on the second.
func FormatMultiline(comps *geocode.Components) string {
	if comps == nil {
		return ""
	}

	first := streetLine(comps)
	if unit := unitLine(comps.UnitType, comps.UnitNumber); unit != "" {
		if first != "" {
			first += " " + unit
		} else {
			first = unit
		}
	}

	var second []string
	if locality := strings.TrimSpace(comps.Location.Locality); locality != "" {
		second = append(second, locality)
	}
	if region := regionLine(comps.Location); region != "" {
		second = append(second, region)
	}

	lines := make([]string, 0, 2)
	if first != "" {
		lines = append(lines, first)
	}
	if len(second) > 0 {
		lines = append(lines, strings.Join(second, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatShort renders just the street line.
func FormatShort(comps *geocode.Components) string {
	if comps == nil {
		return ""
	}
	return streetLine(comps)
}

// DisplayString renders a resolved address. Styles: "default" (single line),
// "compact" (single line with abbreviated street types), "short" (street
// line only). Unknown styles fall back to default.
func DisplayString(detail *models.AddressDetail, style string) string {
	if detail == nil || detail.Address == nil {
		return ""
	}

	comps := detailComponents(detail)
	switch style {
	case "short":
		return FormatShort(comps)
	case "compact":
		abbreviated := *comps
		if short, ok := compactTypes[abbreviated.StreetType]; ok {
			abbreviated.StreetType = short
		}
		return FormatUSAddress(&abbreviated, DefaultSeparator)
	default:
		return FormatUSAddress(comps, DefaultSeparator)
	}
}

// detailComponents rebuilds a component mapping from stored records so the
// same rendering paths serve both pipelines.
func detailComponents(detail *models.AddressDetail) *geocode.Components {
	comps := &geocode.Components{
		StreetNumber:    detail.Address.StreetNumber,
		StreetName:      detail.Address.StreetName,
		StreetType:      detail.Address.StreetType,
		StreetDirection: detail.Address.StreetDirection,
		UnitType:        detail.Address.UnitType,
		UnitNumber:      detail.Address.UnitNumber,
	}
	if detail.Locality != nil {
		comps.Location.Locality = detail.Locality.Name
		comps.Location.PostalCode = detail.Locality.PostalCode
	}
	if detail.State != nil {
		comps.Location.StateCode = detail.State.Code
		comps.Location.State = detail.State.Name
	}
	if detail.Country != nil {
		comps.Location.Country = detail.Country.Name
		comps.Location.CountryCode = detail.Country.Code
	}
	return comps
}

func streetLine(comps *geocode.Components) string {
	line := strings.Join([]string{
		strings.TrimSpace(comps.StreetNumber),
		strings.TrimSpace(comps.StreetDirection),
		strings.TrimSpace(comps.StreetName),
		strings.TrimSpace(comps.StreetType),
	}, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
}

func unitLine(unitType, unitNumber string) string {
	unitType = strings.TrimSpace(unitType)
	unitNumber = strings.TrimSpace(unitNumber)
	switch {
	case unitType != "" && unitNumber != "":
		return unitType + " " + unitNumber
	case unitNumber != "":
		return "# " + unitNumber
	default:
		return ""
	}
}

// regionLine joins state code and postal code ("CA 94043").
func regionLine(loc geocode.Location) string {
	state := strings.TrimSpace(loc.StateCode)
	if state == "" {
		state = strings.TrimSpace(loc.State)
	}
	postal := strings.TrimSpace(loc.PostalCode)
	switch {
	case state != "" && postal != "":
		return state + " " + postal
	case state != "":
		return state
	default:
		return postal
	}
}
