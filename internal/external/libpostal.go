//go:build libpostal

package external

import (
	"strings"

	expand "github.com/openvenues/gopostal/expand"
	postal "github.com/openvenues/gopostal/parser"

	"github.com/address-kit/internal/parser"
)

// Available reports whether libpostal support was compiled in.
const Available = true

// libpostal labels mapped onto the normalized component keys.
var labelMap = map[string]string{
	"house_number": parser.KeyStreetNumber,
	"road":         parser.KeyStreetName,
	"unit":         parser.KeyUnitNumber,
	"po_box":       parser.KeyPOBox,
	"city":         parser.KeyCity,
	"state":        parser.KeyState,
	"postcode":     parser.KeyZipcode,
}

// ParseWithLibpostal parses a free-text address with libpostal and remaps
// its labels to the normalized keys. Labels with no mapping are dropped.
func ParseWithLibpostal(address string) map[string]string {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}

	out := make(map[string]string)
	for _, component := range postal.ParseAddress(address) {
		key, ok := labelMap[component.Label]
		if !ok {
			continue
		}
		if _, exists := out[key]; !exists {
			out[key] = component.Value
		}
	}
	return out
}

// ExpandAddress returns libpostal's expansion candidates for an address.
func ExpandAddress(address string) []string {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}
	return expand.ExpandAddress(address)
}
