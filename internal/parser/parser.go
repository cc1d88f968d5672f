// Package parser extracts structured components from free-text US address
// strings with a fixed sequence of regex passes.
package parser

import (
	"regexp"
	"strings"

	"github.com/address-kit/internal/constants"
)

// Component keys produced by ParseAddressComponents.
const (
	KeyPOBox           = "po_box"
	KeyCity            = "city"
	KeyState           = "state"
	KeyZipcode         = "zipcode"
	KeyUnitType        = "unit_type"
	KeyUnitNumber      = "unit_number"
	KeyStreetNumber    = "street_number"
	KeyStreetName      = "street_name"
	KeyStreetType      = "street_type"
	KeyStreetDirection = "street_direction"
)

var (
	poBoxPattern = regexp.MustCompile(
		`(?i)\b(?:P\.?\s*O\.?\s*Box|Post\s+Office\s+Box)\s*(?P<po_box>[\w-]+)`)
	// The trailing \b keeps keywords from matching inside longer words
	// ("Unit" in "United"). A bare "#" marker passes through as the unit type.
	unitPattern = regexp.MustCompile(
		`(?i)(?:\b(?P<unit_type>Apartment|Apt|Suite|Ste|Unit|Floor|Fl|Room|Rm|Building|Bldg)\b\.?\s*[#\s]*|#\s*)` +
			`(?P<unit_number>[\w-]+)`)
	cityStatePattern = regexp.MustCompile(
		`(?P<city>[^,]+),\s*(?P<state>[A-Za-z]{2})\s*(?P<zipcode>\d{5}(?:-\d{4})?)?$`)
	wordSplit = regexp.MustCompile(`\s+`)
)

// ParseAddressComponents parses a full address string into a flat component
// map. Extraction order matters: PO-box and trailing city/state/zip segments
// are excised before unit markers and street tokenization so they cannot be
// mistaken for street parts. Empty components are omitted from the result.
func ParseAddressComponents(address string) map[string]string {
	if address == "" {
		return map[string]string{}
	}

	working := strings.TrimSpace(address)
	components := make(map[string]string)

	if m := findNamed(poBoxPattern, working); m != nil {
		components[KeyPOBox] = m["po_box"]
		working = strings.Trim(poBoxPattern.ReplaceAllString(working, ""), ", ")
	}

	if loc := cityStatePattern.FindStringSubmatchIndex(working); loc != nil {
		m := namedGroups(cityStatePattern, working, loc)
		components[KeyCity] = strings.TrimSpace(m["city"])
		components[KeyState] = strings.TrimSpace(m["state"])
		if zip := strings.TrimSpace(m["zipcode"]); zip != "" {
			components[KeyZipcode] = zip
		}
		working = strings.Trim(working[:loc[0]], ", ")
	}

	if m := findNamed(unitPattern, working); m != nil {
		unitType := normalizeUnitType(m["unit_type"])
		if unitType == "" {
			unitType = "#"
		}
		components[KeyUnitType] = unitType
		components[KeyUnitNumber] = strings.TrimSpace(m["unit_number"])
		working = strings.Trim(unitPattern.ReplaceAllString(working, ""), ", ")
	}

	tokens := splitTokens(working)

	if len(tokens) > 0 && isDigits(tokens[0]) {
		components[KeyStreetNumber] = tokens[0]
		tokens = tokens[1:]
	}

	if len(tokens) > 0 {
		direction := strings.ToUpper(strings.TrimRight(tokens[0], ",."))
		if constants.IsCardinalDirection(direction) {
			components[KeyStreetDirection] = direction
			tokens = tokens[1:]
		}
	}

	if len(tokens) > 0 {
		last := strings.ToUpper(strings.TrimRight(tokens[len(tokens)-1], ",."))
		if display, ok := constants.StreetSuffixLookup[last]; ok {
			components[KeyStreetType] = display
			tokens = tokens[:len(tokens)-1]
		}
		components[KeyStreetName] = strings.Trim(strings.Join(tokens, " "), ", ")
	}

	for key, value := range components {
		if value == "" {
			delete(components, key)
		}
	}
	return components
}

// normalizeUnitType maps unit labels to USPS abbreviations; unrecognized
// labels pass through cleaned and uppercased.
func normalizeUnitType(rawType string) string {
	cleaned := strings.ToUpper(strings.NewReplacer(".", "", "#", "").Replace(rawType))

	for name, abbr := range constants.UnitTypes {
		if cleaned == name || cleaned == abbr {
			return abbr
		}
	}
	if cleaned == "" {
		return rawType
	}
	return cleaned
}

func splitTokens(s string) []string {
	var tokens []string
	for _, token := range wordSplit.Split(s, -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func findNamed(re *regexp.Regexp, s string) map[string]string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil
	}
	return namedGroups(re, s, loc)
}

func namedGroups(re *regexp.Regexp, s string, loc []int) map[string]string {
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		groups[name] = s[loc[2*i]:loc[2*i+1]]
	}
	return groups
}
