//go:build !libpostal

package external

// Available reports whether libpostal support was compiled in.
const Available = false

// ParseWithLibpostal is a no-op without the libpostal tag; callers fall back
// to the regex parser.
func ParseWithLibpostal(string) map[string]string { return nil }

// ExpandAddress is a no-op without the libpostal tag.
func ExpandAddress(string) []string { return nil }
