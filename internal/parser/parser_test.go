package parser

import (
	"reflect"
	"testing"
)

func TestParseAddressComponents(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    map[string]string
	}{
		{
			name:    "full street address with city state zip",
			address: "1600 Amphitheatre Parkway, Mountain View, CA 94043",
			want: map[string]string{
				KeyStreetNumber: "1600",
				KeyStreetName:   "Amphitheatre",
				KeyStreetType:   "Parkway",
				KeyCity:         "Mountain View",
				KeyState:        "CA",
				KeyZipcode:      "94043",
			},
		},
		{
			name:    "po box and unit extracted before street tokenization",
			address: "PO Box 123, Apt 4B, 742 Evergreen Terrace, Springfield, IL 62704",
			want: map[string]string{
				KeyPOBox:        "123",
				KeyUnitType:     "APT",
				KeyUnitNumber:   "4B",
				KeyStreetNumber: "742",
				KeyStreetName:   "Evergreen",
				KeyStreetType:   "Terrace",
				KeyCity:         "Springfield",
				KeyState:        "IL",
				KeyZipcode:      "62704",
			},
		},
		{
			name:    "street direction",
			address: "100 N Main Street, Columbus, OH 43215",
			want: map[string]string{
				KeyStreetNumber:    "100",
				KeyStreetDirection: "N",
				KeyStreetName:      "Main",
				KeyStreetType:      "Street",
				KeyCity:            "Columbus",
				KeyState:           "OH",
				KeyZipcode:         "43215",
			},
		},
		{
			name:    "abbreviated suffix resolves to its own display form",
			address: "55 Oak St",
			want: map[string]string{
				KeyStreetNumber: "55",
				KeyStreetName:   "Oak",
				KeyStreetType:   "ST",
			},
		},
		{
			name:    "zip plus four",
			address: "12 Elm Street, Boston, MA 02108-1234",
			want: map[string]string{
				KeyStreetNumber: "12",
				KeyStreetName:   "Elm",
				KeyStreetType:   "Street",
				KeyCity:         "Boston",
				KeyState:        "MA",
				KeyZipcode:      "02108-1234",
			},
		},
		{
			name:    "city and state without zip",
			address: "742 Evergreen Terrace, Springfield, IL",
			want: map[string]string{
				KeyStreetNumber: "742",
				KeyStreetName:   "Evergreen",
				KeyStreetType:   "Terrace",
				KeyCity:         "Springfield",
				KeyState:        "IL",
			},
		},
		{
			name:    "post office box spelled out",
			address: "Post Office Box 9912",
			want: map[string]string{
				KeyPOBox: "9912",
			},
		},
		{
			name:    "suite with hash",
			address: "500 Market Street Suite #210",
			want: map[string]string{
				KeyStreetNumber: "500",
				KeyStreetName:   "Market",
				KeyStreetType:   "Street",
				KeyUnitType:     "STE",
				KeyUnitNumber:   "210",
			},
		},
		{
			name:    "bare hash unit marker passes through as the unit type",
			address: "350 5th Avenue # 21, New York, NY 10118",
			want: map[string]string{
				KeyStreetNumber: "350",
				KeyStreetName:   "5th",
				KeyStreetType:   "Avenue",
				KeyUnitType:     "#",
				KeyUnitNumber:   "21",
				KeyCity:         "New York",
				KeyState:        "NY",
				KeyZipcode:      "10118",
			},
		},
		{
			name:    "unit keyword inside a longer word is not a unit",
			address: "10 United Plaza",
			want: map[string]string{
				KeyStreetNumber: "10",
				KeyStreetName:   "United Plaza",
			},
		},
		{
			name:    "empty input",
			address: "",
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddressComponents(tt.address)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAddressComponents(%q)\n got:  %v\n want: %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestParseAddressComponentsOmitsEmpty(t *testing.T) {
	got := ParseAddressComponents("742 Evergreen Terrace")
	for key, value := range got {
		if value == "" {
			t.Errorf("component %q present with empty value", key)
		}
	}
	if _, ok := got[KeyCity]; ok {
		t.Error("city should be absent when the input has no city segment")
	}
}

func TestNormalizeUnitType(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Apt", "APT"},
		{"Apartment", "APT"},
		{"suite", "STE"},
		{"Ste.", "STE"},
		{"FLOOR", "FL"},
		{"Unit", "UNIT"},
		{"Wing", "WING"},
	}
	for _, tt := range tests {
		if got := normalizeUnitType(tt.raw); got != tt.want {
			t.Errorf("normalizeUnitType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
