// Package validators contains field-level validation for US address data.
package validators

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/address-kit/internal/constants"
)

var (
	zipPattern         = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	streetStartPattern = regexp.MustCompile(`^\d`)
	streetLetter       = regexp.MustCompile(`[a-zA-Z]`)
	streetCharset      = regexp.MustCompile(`^[\w\s.\-#,/]+$`)
	poBoxPattern       = regexp.MustCompile(`(?i)^(P\.?\s*O\.?\s*(Box|B\.?)|POB\.?)\s+\d+$`)
)

// ValidateStateCode checks that value is a valid 2-character US state,
// territory, or military code (case-insensitive).
func ValidateStateCode(value string) error {
	if value == "" {
		return fmt.Errorf("state code is required")
	}

	code := strings.ToUpper(strings.TrimSpace(value))
	if len(code) != 2 {
		return fmt.Errorf("state code must be exactly 2 characters, got %d", len(code))
	}
	if _, ok := constants.AllStateCodes[code]; !ok {
		return fmt.Errorf("%q is not a valid US state, territory, or military postal code", value)
	}
	return nil
}

// ValidateZipCode checks 5-digit or ZIP+4 format.
func ValidateZipCode(value string) error {
	if value == "" {
		return fmt.Errorf("ZIP code is required")
	}
	if !zipPattern.MatchString(strings.TrimSpace(value)) {
		return fmt.Errorf("%q is not a valid ZIP code; use 5-digit (12345) or ZIP+4 (12345-6789) format", value)
	}
	return nil
}

// ValidateStreetAddress applies basic shape checks: starts with a number,
// contains a street name, uses only common address punctuation.
func ValidateStreetAddress(value string) error {
	if value == "" {
		return fmt.Errorf("street address is required")
	}

	address := strings.TrimSpace(value)
	if len(address) < 5 {
		return fmt.Errorf("street address must be at least 5 characters long")
	}
	if !streetStartPattern.MatchString(address) {
		return fmt.Errorf("street address must start with a street number")
	}
	if !streetLetter.MatchString(address) {
		return fmt.Errorf("street address must contain a street name")
	}
	if !streetCharset.MatchString(address) {
		return fmt.Errorf("street address contains invalid characters")
	}
	return nil
}

// ValidatePOBox accepts the usual PO Box spellings (PO Box 123, P.O. Box 123,
// POB 123).
func ValidatePOBox(value string) error {
	if value == "" {
		return fmt.Errorf("PO Box is required")
	}
	if !poBoxPattern.MatchString(strings.TrimSpace(value)) {
		return fmt.Errorf("%q is not a valid PO Box format", value)
	}
	return nil
}
