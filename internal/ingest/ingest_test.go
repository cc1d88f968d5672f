package ingest

import (
	"context"
	"testing"

	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/storage"
)

// fixedAdapter always returns the same geocode result.
type fixedAdapter struct {
	comps *geocode.Components
	calls int
}

func (a *fixedAdapter) Geocode(_ context.Context, _ string) (*geocode.Components, error) {
	a.calls++
	copied := *a.comps
	return &copied, nil
}

func (a *fixedAdapter) ProviderName() string { return "google" }

func evergreenComponents() *geocode.Components {
	return &geocode.Components{
		StreetNumber: "742",
		StreetName:   "Evergreen",
		StreetType:   "Terrace",
		Formatted:    "742 Evergreen Terrace, Springfield, IL 62704",
		Provider:     "google",
		Location: geocode.Location{
			Locality:    "Springfield",
			StateCode:   "IL",
			PostalCode:  "62704",
			CountryCode: "US",
		},
		Metadata: map[string]any{"place_id": "ChIJEvergreen742"},
	}
}

func newTestIngester(adapter geocode.Adapter) (*Ingester, *storage.MemStore) {
	store := storage.NewMemStore()
	res := resolver.New(store, nil)
	return New(res, adapter, nil), store
}

func TestIngestLegacyAliasesStructuredPath(t *testing.T) {
	ing, store := newTestIngester(nil)
	ctx := context.Background()

	records := []Record{
		{"line1": "1600 Amphitheatre Parkway", "city": "Mountain View", "state_code": "CA", "zip": "94043"},
		{"street": "1600 Amphitheatre Parkway", "locality": "Mountain View", "province": "CA", "postal_code": "94043"},
		{"address1": "1600 Amphitheatre Parkway", "town": "Mountain View", "state_iso": "CA", "zipcode": "94043"},
	}

	var firstID string
	for i, record := range records {
		address, err := ing.IngestLegacyAddress(ctx, record)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if address.StreetNumber != "1600" {
			t.Errorf("record %d: street number %q, want 1600", i, address.StreetNumber)
		}
		if i == 0 {
			firstID = address.ID.Hex()
		} else if address.ID.Hex() != firstID {
			t.Errorf("record %d resolved to a different address than record 0", i)
		}
	}

	count, _ := store.CountAddresses(ctx)
	if count != 1 {
		t.Errorf("aliased records created %d addresses, want 1", count)
	}
}

func TestIngestRawPathDeduplicates(t *testing.T) {
	adapter := &fixedAdapter{comps: evergreenComponents()}
	ing, store := newTestIngester(adapter)
	ctx := context.Background()

	record := Record{"street": "742 Evergreen Terrace"} // no city/postal: raw path

	var addressID string
	for i := 0; i < 3; i++ {
		address, err := ing.IngestLegacyAddress(ctx, record)
		if err != nil {
			t.Fatal(err)
		}
		addressID = address.ID.Hex()
	}

	count, _ := store.CountAddresses(ctx)
	if count != 1 {
		t.Fatalf("3 identical ingests created %d addresses, want 1", count)
	}
	if adapter.calls != 3 {
		t.Errorf("adapter called %d times, want 3", adapter.calls)
	}

	address, err := store.FindAddressByRaw(ctx, evergreenComponents().Formatted)
	if err != nil || address == nil {
		t.Fatalf("address not found by formatted raw: %v", err)
	}
	if address.ID.Hex() != addressID {
		t.Fatal("lookup returned a different address")
	}

	identifiers, err := store.ListIdentifiers(ctx, address.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(identifiers) != 1 {
		t.Errorf("got %d identifiers, want exactly 1", len(identifiers))
	}

	sources, err := store.ListSources(ctx, address.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 3 {
		t.Errorf("got %d sources, want 3 retained versions", len(sources))
	}
}

func TestIngestUnitFieldOverridesStreetLine(t *testing.T) {
	ing, _ := newTestIngester(nil)

	address, err := ing.IngestLegacyAddress(context.Background(), Record{
		"line1": "742 Evergreen Terrace",
		"city":  "Springfield",
		"state": "Illinois",
		"zip":   "62704",
		"suite": "Apt 4B",
	})
	if err != nil {
		t.Fatal(err)
	}
	if address.UnitType != "APT" || address.UnitNumber != "4B" {
		t.Errorf("unit = %q %q, want APT 4B", address.UnitType, address.UnitNumber)
	}
}

func TestIngestEmptyRecordFails(t *testing.T) {
	ing, _ := newTestIngester(nil)
	if _, err := ing.IngestLegacyAddress(context.Background(), Record{}); err == nil {
		t.Fatal("expected error for a record with no address fields")
	}
}

func TestIngestBatchCollectsFailures(t *testing.T) {
	ing, _ := newTestIngester(nil)

	result, err := ing.IngestBatch(context.Background(), []Record{
		{"line1": "742 Evergreen Terrace", "city": "Springfield", "state_code": "IL", "zip": "62704"},
		{},
		{"line1": "1600 Amphitheatre Parkway", "city": "Mountain View", "state_code": "CA", "zip": "94043"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Resolved) != 2 {
		t.Errorf("resolved %d records, want 2", len(result.Resolved))
	}
	if len(result.Failures) != 1 || result.Failures[0].Index != 1 {
		t.Errorf("failures = %+v, want one failure at index 1", result.Failures)
	}
}
