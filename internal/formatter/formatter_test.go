package formatter

import (
	"testing"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/parser"
)

func evergreen() *geocode.Components {
	return &geocode.Components{
		StreetNumber: "742",
		StreetName:   "Evergreen",
		StreetType:   "Terrace",
		UnitType:     "APT",
		UnitNumber:   "4B",
		Location: geocode.Location{
			Locality:   "Springfield",
			StateCode:  "IL",
			PostalCode: "62704",
		},
	}
}

func TestFormatUSAddress(t *testing.T) {
	tests := []struct {
		name  string
		comps *geocode.Components
		want  string
	}{
		{
			name:  "full address",
			comps: evergreen(),
			want:  "742 Evergreen Terrace, APT 4B, Springfield, IL 62704",
		},
		{
			name: "street only",
			comps: &geocode.Components{
				StreetNumber: "1600",
				StreetName:   "Amphitheatre",
				StreetType:   "Parkway",
			},
			want: "1600 Amphitheatre Parkway",
		},
		{
			name: "direction included",
			comps: &geocode.Components{
				StreetNumber:    "100",
				StreetDirection: "N",
				StreetName:      "Main",
				StreetType:      "Street",
				Location:        geocode.Location{Locality: "Columbus", StateCode: "OH"},
			},
			want: "100 N Main Street, Columbus, OH",
		},
		{
			name: "unit number without type",
			comps: &geocode.Components{
				StreetNumber: "350",
				StreetName:   "5th",
				StreetType:   "Avenue",
				UnitNumber:   "21",
			},
			want: "350 5th Avenue, # 21",
		},
		{
			name:  "all empty yields empty",
			comps: &geocode.Components{},
			want:  "",
		},
		{
			name:  "nil yields empty",
			comps: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUSAddress(tt.comps, ""); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatMultiline(t *testing.T) {
	got := FormatMultiline(evergreen())
	want := "742 Evergreen Terrace APT 4B\nSpringfield, IL 62704"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatShort(t *testing.T) {
	if got := FormatShort(evergreen()); got != "742 Evergreen Terrace" {
		t.Errorf("got %q", got)
	}
}

// Formatting output must parse back to the same components.
func TestFormatParseRoundTrip(t *testing.T) {
	comps := evergreen()
	formatted := FormatUSAddress(comps, ", ")

	parsed := parser.ParseAddressComponents(formatted)
	if parsed[parser.KeyStreetNumber] != comps.StreetNumber {
		t.Errorf("street number: %q != %q", parsed[parser.KeyStreetNumber], comps.StreetNumber)
	}
	if parsed[parser.KeyStreetName] != comps.StreetName {
		t.Errorf("street name: %q != %q", parsed[parser.KeyStreetName], comps.StreetName)
	}
	if parsed[parser.KeyCity] != comps.Location.Locality {
		t.Errorf("city: %q != %q", parsed[parser.KeyCity], comps.Location.Locality)
	}
	if parsed[parser.KeyState] != comps.Location.StateCode {
		t.Errorf("state: %q != %q", parsed[parser.KeyState], comps.Location.StateCode)
	}
	if parsed[parser.KeyZipcode] != comps.Location.PostalCode {
		t.Errorf("zip: %q != %q", parsed[parser.KeyZipcode], comps.Location.PostalCode)
	}
	if parsed[parser.KeyUnitNumber] != comps.UnitNumber {
		t.Errorf("unit: %q != %q", parsed[parser.KeyUnitNumber], comps.UnitNumber)
	}
}

func TestDisplayString(t *testing.T) {
	detail := &models.AddressDetail{
		Address: &models.Address{
			StreetNumber: "1600",
			StreetName:   "Amphitheatre",
			StreetType:   "Parkway",
			Raw:          "1600 Amphitheatre Parkway, Mountain View, CA 94043",
		},
		Locality: &models.Locality{Name: "Mountain View", PostalCode: "94043"},
		State:    &models.State{Name: "California", Code: "CA"},
	}

	tests := []struct {
		style string
		want  string
	}{
		{"default", "1600 Amphitheatre Parkway, Mountain View, CA 94043"},
		{"compact", "1600 Amphitheatre Pkwy., Mountain View, CA 94043"},
		{"short", "1600 Amphitheatre Parkway"},
		{"bogus", "1600 Amphitheatre Parkway, Mountain View, CA 94043"},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			if got := DisplayString(detail, tt.style); got != tt.want {
				t.Errorf("style %q: got %q, want %q", tt.style, got, tt.want)
			}
		})
	}

	if got := DisplayString(nil, "default"); got != "" {
		t.Errorf("nil detail: got %q", got)
	}
}
