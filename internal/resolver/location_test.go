package resolver

import (
	"context"
	"testing"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/storage"
)

func newTestResolver() (*Resolver, *storage.MemStore) {
	store := storage.NewMemStore()
	return New(store, nil), store
}

func TestResolveCountryDefaultsToUS(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	country, err := r.ResolveCountry(ctx, geocode.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if country.Code != "US" || country.Name != "United States" {
		t.Errorf("got %q/%q, want United States/US", country.Name, country.Code)
	}

	again, err := r.ResolveCountry(ctx, geocode.Location{CountryCode: "us"})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != country.ID {
		t.Error("case-differing code lookup created a second country")
	}

	byCode, err := store.FindCountryByCode(ctx, "US")
	if err != nil || byCode == nil {
		t.Fatalf("country not findable by code: %v", err)
	}
}

func TestResolveCountryBackfillsName(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	if _, err := store.CreateCountry(ctx, &models.Country{Code: "US"}); err != nil {
		t.Fatal(err)
	}

	country, err := r.ResolveCountry(ctx, geocode.Location{Country: "United States", CountryCode: "US"})
	if err != nil {
		t.Fatal(err)
	}
	if country.Name != "United States" {
		t.Errorf("name not backfilled, got %q", country.Name)
	}
}

func TestResolveStateRequiresCountry(t *testing.T) {
	r, _ := newTestResolver()
	if _, err := r.ResolveState(context.Background(), nil, geocode.Location{StateCode: "CA"}); err == nil {
		t.Fatal("expected error resolving a state without a country")
	}
}

func TestResolveStateCaseInsensitiveReuse(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	first, err := r.ResolveLocation(ctx, geocode.Location{
		Country: "United States", CountryCode: "US",
		State: "california", StateCode: "CA",
		Locality: "mountain view", PostalCode: "94043",
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := r.ResolveLocation(ctx, geocode.Location{
		State: "California", StateCode: "ca",
		Locality: "Mountain View", PostalCode: "94043",
	})
	if err != nil {
		t.Fatal(err)
	}

	if first.State.ID != second.State.ID {
		t.Error("case-differing state payloads created two states")
	}
	if first.Locality.ID != second.Locality.ID {
		t.Error("case-differing locality payloads created two localities")
	}
	t.Logf("locality %s reused across both payloads", first.Locality.ID.Hex())
}

func TestResolveStateRecoversCodeFromName(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	country, err := r.ResolveCountry(ctx, geocode.Location{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		state    string
		wantCode string
	}{
		{"exact name", "California", "CA"},
		{"misspelled name", "Calfornia", "CA"},
		{"code in the name slot", "TX", "TX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := r.ResolveState(ctx, country, geocode.Location{State: tt.state})
			if err != nil {
				t.Fatal(err)
			}
			if state.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", state.Code, tt.wantCode)
			}
		})
	}
}

func TestResolveStateBackfillsNameFromCode(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	country, err := r.ResolveCountry(ctx, geocode.Location{})
	if err != nil {
		t.Fatal(err)
	}
	state, err := r.ResolveState(ctx, country, geocode.Location{StateCode: "IL"})
	if err != nil {
		t.Fatal(err)
	}
	if state.Name != "Illinois" {
		t.Errorf("name = %q, want Illinois", state.Name)
	}
}

func TestResolveLocalityScopedToState(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	illinois, err := r.ResolveLocation(ctx, geocode.Location{StateCode: "IL", Locality: "Springfield"})
	if err != nil {
		t.Fatal(err)
	}
	missouri, err := r.ResolveLocation(ctx, geocode.Location{StateCode: "MO", Locality: "Springfield"})
	if err != nil {
		t.Fatal(err)
	}

	if illinois.Locality.ID == missouri.Locality.ID {
		t.Error("same city name under different states should be two localities")
	}
}

func TestResolveLocalityDistinctPostalCodes(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	a, err := r.ResolveLocation(ctx, geocode.Location{StateCode: "NY", Locality: "New York", PostalCode: "10001"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.ResolveLocation(ctx, geocode.Location{StateCode: "NY", Locality: "New York", PostalCode: "10002"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Locality.ID == b.Locality.ID {
		t.Error("distinct postal codes should be distinct localities")
	}
}

func TestResolveLocationLocalityWithoutState(t *testing.T) {
	r, _ := newTestResolver()
	if _, err := r.ResolveLocation(context.Background(), geocode.Location{Locality: "Springfield"}); err == nil {
		t.Fatal("expected error for a locality with no state")
	}
}

func TestResolveLocationEmptyPayload(t *testing.T) {
	r, _ := newTestResolver()
	resolved, err := r.ResolveLocation(context.Background(), geocode.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Country != nil || resolved.State != nil || resolved.Locality != nil {
		t.Error("empty payload should resolve to nothing")
	}
}
