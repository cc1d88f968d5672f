// Package constants holds the static US address lookup tables: state,
// territory, and military codes plus USPS street-suffix and unit-type
// abbreviations.
package constants

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// USStates maps 2-letter state codes to full state names (including DC).
var USStates = map[string]string{
	"AL": "Alabama",
	"AK": "Alaska",
	"AZ": "Arizona",
	"AR": "Arkansas",
	"CA": "California",
	"CO": "Colorado",
	"CT": "Connecticut",
	"DE": "Delaware",
	"FL": "Florida",
	"GA": "Georgia",
	"HI": "Hawaii",
	"ID": "Idaho",
	"IL": "Illinois",
	"IN": "Indiana",
	"IA": "Iowa",
	"KS": "Kansas",
	"KY": "Kentucky",
	"LA": "Louisiana",
	"ME": "Maine",
	"MD": "Maryland",
	"MA": "Massachusetts",
	"MI": "Michigan",
	"MN": "Minnesota",
	"MS": "Mississippi",
	"MO": "Missouri",
	"MT": "Montana",
	"NE": "Nebraska",
	"NV": "Nevada",
	"NH": "New Hampshire",
	"NJ": "New Jersey",
	"NM": "New Mexico",
	"NY": "New York",
	"NC": "North Carolina",
	"ND": "North Dakota",
	"OH": "Ohio",
	"OK": "Oklahoma",
	"OR": "Oregon",
	"PA": "Pennsylvania",
	"RI": "Rhode Island",
	"SC": "South Carolina",
	"SD": "South Dakota",
	"TN": "Tennessee",
	"TX": "Texas",
	"UT": "Utah",
	"VT": "Vermont",
	"VA": "Virginia",
	"WA": "Washington",
	"WV": "West Virginia",
	"WI": "Wisconsin",
	"WY": "Wyoming",
	"DC": "District of Columbia",
}

// USTerritories maps territory codes to names.
var USTerritories = map[string]string{
	"AS": "American Samoa",
	"GU": "Guam",
	"MP": "Northern Mariana Islands",
	"PR": "Puerto Rico",
	"VI": "U.S. Virgin Islands",
}

// MilitaryStates maps military "state" codes (APO/FPO/DPO) to names.
var MilitaryStates = map[string]string{
	"AA": "Armed Forces Americas",
	"AE": "Armed Forces Europe",
	"AP": "Armed Forces Pacific",
}

// AllStateCodes merges states, territories, and military codes.
var AllStateCodes = mergeCodes(USStates, USTerritories, MilitaryStates)

// StreetSuffixes maps full USPS street-suffix names (uppercase) to their
// standard abbreviations.
var StreetSuffixes = map[string]string{
	"ALLEY":     "ALY",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"CIRCLE":    "CIR",
	"COURT":     "CT",
	"DRIVE":     "DR",
	"HIGHWAY":   "HWY",
	"LANE":      "LN",
	"PARKWAY":   "PKWY",
	"PLACE":     "PL",
	"ROAD":      "RD",
	"SQUARE":    "SQ",
	"STREET":    "ST",
	"TERRACE":   "TER",
	"TRAIL":     "TRL",
	"WAY":       "WAY",
}

// UnitTypes maps full unit-type names (uppercase) to USPS abbreviations.
var UnitTypes = map[string]string{
	"APARTMENT": "APT",
	"BUILDING":  "BLDG",
	"FLOOR":     "FL",
	"SUITE":     "STE",
	"UNIT":      "UNIT",
	"ROOM":      "RM",
}

// CardinalDirections are the recognized street-direction tokens.
var CardinalDirections = map[string]struct{}{
	"N": {}, "S": {}, "E": {}, "W": {},
	"NE": {}, "NW": {}, "SE": {}, "SW": {},
}

// StreetSuffixLookup maps both full names and abbreviations (uppercased) to
// their display forms: full names resolve to the title-cased suffix,
// abbreviations resolve to themselves.
var StreetSuffixLookup = buildSuffixLookup()

func mergeCodes(tables ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, table := range tables {
		for code, name := range table {
			merged[code] = name
		}
	}
	return merged
}

func buildSuffixLookup() map[string]string {
	titler := cases.Title(language.English)
	lookup := make(map[string]string, len(StreetSuffixes)*2)
	for name, abbr := range StreetSuffixes {
		lookup[strings.ToUpper(name)] = titler.String(strings.ToLower(name))
		lookup[strings.ToUpper(abbr)] = abbr
	}
	return lookup
}

// IsCardinalDirection reports whether the token (uppercased, punctuation
// already stripped) is a cardinal or intercardinal direction abbreviation.
func IsCardinalDirection(token string) bool {
	_, ok := CardinalDirections[strings.ToUpper(token)]
	return ok
}

// IsMilitaryState reports whether the code identifies an APO/FPO/DPO state.
func IsMilitaryState(code string) bool {
	_, ok := MilitaryStates[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}
