// Package normalizer provides whitespace/case normalization and
// abbreviation expansion for raw address strings.
package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/address-kit/internal/constants"
)

var (
	reSpaces = regexp.MustCompile(`\s+`)
	titler   = cases.Title(language.English)

	// Trailing ", ST 12345" region. Suffix expansion must not touch it:
	// "CT" there is Connecticut, not Court.
	trailingRegion = regexp.MustCompile(`,\s*[A-Za-z]{2}\s*(?:\d{5}(?:-\d{4})?)?$`)

	// One compiled pattern per suffix abbreviation, built once at startup.
	suffixExpansions = buildSuffixExpansions()
)

type suffixExpansion struct {
	pattern     *regexp.Regexp
	replacement string
}

func buildSuffixExpansions() []suffixExpansion {
	expansions := make([]suffixExpansion, 0, len(constants.StreetSuffixes))
	for longName, abbr := range constants.StreetSuffixes {
		expansions = append(expansions, suffixExpansion{
			pattern:     regexp.MustCompile(`(?i)\b` + abbr + `\b`),
			replacement: titler.String(strings.ToLower(longName)),
		})
	}
	return expansions
}

// NormalizeString collapses runs of whitespace to single spaces and trims the
// result. All-uppercase input is title-cased; mixed case is left alone.
// Empty input is returned unchanged.
func NormalizeString(value string) string {
	if value == "" {
		return value
	}

	normalized := strings.TrimSpace(reSpaces.ReplaceAllString(value, " "))
	if normalized != "" && normalized == strings.ToUpper(normalized) && normalized != strings.ToLower(normalized) {
		return titler.String(strings.ToLower(normalized))
	}
	return normalized
}

// StandardizeAddress normalizes whitespace/case and expands USPS street-suffix
// abbreviations to their full title-cased names ("Pkwy" -> "Parkway").
func StandardizeAddress(address string) string {
	if address == "" {
		return address
	}

	address = NormalizeString(address)

	head, tail := address, ""
	if loc := trailingRegion.FindStringIndex(address); loc != nil {
		head, tail = address[:loc[0]], address[loc[0]:]
	}
	for _, exp := range suffixExpansions {
		head = exp.pattern.ReplaceAllString(head, exp.replacement)
	}
	return head + tail
}
