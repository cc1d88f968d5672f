package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/geocode"
)

// scriptedAdapter replays a fixed sequence of geocode responses, repeating
// the last one once exhausted.
type scriptedAdapter struct {
	provider  string
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	comps *geocode.Components
	err   error
}

func (a *scriptedAdapter) Geocode(_ context.Context, _ string) (*geocode.Components, error) {
	idx := a.calls
	if idx >= len(a.responses) {
		idx = len(a.responses) - 1
	}
	a.calls++
	resp := a.responses[idx]
	return resp.comps, resp.err
}

func (a *scriptedAdapter) ProviderName() string {
	if a.provider == "" {
		return "google"
	}
	return a.provider
}

func rateLimitErr(provider string) error {
	return &geocode.Error{Kind: geocode.KindRateLimit, Provider: provider, Message: "over query limit"}
}

func googleComponents() *geocode.Components {
	lat, lng := 37.4224764, -122.0842499
	return &geocode.Components{
		StreetNumber: "1600",
		StreetName:   "Amphitheatre",
		Route:        "Amphitheatre Parkway",
		StreetType:   "Parkway",
		Formatted:    "1600 Amphitheatre Parkway, Mountain View, CA 94043, USA",
		Latitude:     &lat,
		Longitude:    &lng,
		Provider:     "google",
		Location: geocode.Location{
			Locality:    "Mountain View",
			State:       "California",
			StateCode:   "CA",
			PostalCode:  "94043",
			Country:     "United States",
			CountryCode: "US",
		},
		RawPayload: map[string]any{"results": []any{}},
		Metadata:   map[string]any{"place_id": "ChIJ2eUgeAK6j4ARbn5u_wAGqWA"},
	}
}

func TestResolveAddressFromComponentsDedup(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	first, err := r.ResolveAddressFromComponents(ctx, "", googleComponents())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		again, err := r.ResolveAddressFromComponents(ctx, "", googleComponents())
		if err != nil {
			t.Fatal(err)
		}
		if again.ID != first.ID {
			t.Fatal("identical components resolved to a different address")
		}
	}

	count, err := store.CountAddresses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("address count = %d, want 1", count)
	}
	if first.LocalityID.IsZero() {
		t.Error("address not linked to a locality")
	}
}

func TestResolveAddressAppliesChangedValues(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	sparse := googleComponents()
	sparse.Latitude = nil
	sparse.Longitude = nil
	sparse.UnitType = ""
	sparse.UnitNumber = ""

	first, err := r.ResolveAddressFromComponents(ctx, "", sparse)
	if err != nil {
		t.Fatal(err)
	}
	if first.Latitude != nil {
		t.Fatal("sparse payload should not carry coordinates")
	}

	// Same dedup key, corrected values: every changed non-empty value must
	// overwrite the stored field, and blank payload values must not clear
	// populated ones.
	corrected := googleComponents()
	lat := 37.5
	corrected.Latitude = &lat
	corrected.StreetType = "Pkwy"
	corrected.UnitNumber = "5"
	corrected.StreetDirection = ""

	second, err := r.ResolveAddressFromComponents(ctx, "", corrected)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatal("update created a new address")
	}
	if second.Latitude == nil || *second.Latitude != 37.5 {
		t.Errorf("latitude not updated on dedup hit: got %v, want 37.5", second.Latitude)
	}
	if second.Longitude == nil {
		t.Error("longitude not filled in from the richer payload")
	}
	if second.StreetType != "Pkwy" {
		t.Errorf("street_type not updated: got %q, want Pkwy", second.StreetType)
	}
	if second.UnitNumber != "5" {
		t.Errorf("UnitNumber = %q, want 5", second.UnitNumber)
	}
	if second.StreetNumber != "1600" {
		t.Errorf("unchanged field disturbed: StreetNumber = %q", second.StreetNumber)
	}
}

func TestResolveAddressUpdatesFormattedForSameRaw(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	const raw = "1600 Amphitheatre Parkway, Mountain View, CA 94043"

	first, err := r.ResolveAddressFromComponents(ctx, raw, googleComponents())
	if err != nil {
		t.Fatal(err)
	}

	// The provider reformats its display string; the dedup raw is unchanged
	// so this must update the record in place, not fork it.
	reformatted := googleComponents()
	reformatted.Formatted = "1600 Amphitheatre Pkwy, Mountain View, CA 94043, United States"

	second, err := r.ResolveAddressFromComponents(ctx, raw, reformatted)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatal("same raw with a new formatted string forked the address")
	}
	if second.Formatted != reformatted.Formatted {
		t.Errorf("formatted not updated in place: %q", second.Formatted)
	}
	count, _ := store.CountAddresses(ctx)
	if count != 1 {
		t.Errorf("address count = %d, want 1", count)
	}
}

func TestCreateAddressFromRawBlank(t *testing.T) {
	r, _ := newTestResolver()
	if _, err := r.CreateAddressFromRaw(context.Background(), "   ", RawOptions{}); err == nil {
		t.Fatal("expected error for blank input")
	}
}

func TestCreateAddressFromRawParserFallback(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	address, err := r.CreateAddressFromRaw(ctx, "1600 Amphitheatre Pkwy, Mountain View, CA 94043", RawOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if address.Raw != "1600 Amphitheatre Parkway, Mountain View, CA 94043" {
		t.Errorf("raw not standardized: %q", address.Raw)
	}
	if address.StreetNumber != "1600" || address.StreetName != "Amphitheatre" {
		t.Errorf("street not parsed: %q %q", address.StreetNumber, address.StreetName)
	}
	if address.LocalityID.IsZero() {
		t.Error("parser fallback did not resolve the locality")
	}

	sources, err := store.ListSources(ctx, address.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Provider != ProviderParser {
		t.Errorf("expected one parser source, got %+v", sources)
	}
}

func TestCreateAddressFromRawIdempotent(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	const raw = "742 Evergreen Terrace, Springfield, IL 62704"
	first, err := r.CreateAddressFromRaw(ctx, raw, RawOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.CreateAddressFromRaw(ctx, raw, RawOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Error("same raw input resolved to two addresses")
	}
	count, _ := store.CountAddresses(ctx)
	if count != 1 {
		t.Errorf("address count = %d, want 1", count)
	}
}

func TestCreateAddressFromRawNoParseableComponents(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	first, err := r.CreateAddressFromRaw(ctx, ", ,", RawOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Raw == "" {
		t.Fatal("raw-only record lost the input")
	}
	if first.HasStreet() {
		t.Error("raw-only record should carry no street components")
	}

	second, err := r.CreateAddressFromRaw(ctx, ", ,", RawOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Error("raw-only fallback is not idempotent")
	}
}

func TestCreateAddressFromRawWithAdapter(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	adapter := &scriptedAdapter{responses: []scriptedResponse{{comps: googleComponents()}}}
	address, err := r.CreateAddressFromRaw(ctx, "1600 Amphitheatre Pkwy, Mountain View, CA", RawOptions{Adapter: adapter})
	if err != nil {
		t.Fatal(err)
	}
	if adapter.calls != 1 {
		t.Errorf("adapter called %d times, want 1", adapter.calls)
	}

	sources, err := store.ListSources(ctx, address.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Provider != "google" {
		t.Errorf("expected one google source, got %+v", sources)
	}
}

func TestGeocodeRetryRateLimitThenSuccess(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	adapter := &scriptedAdapter{responses: []scriptedResponse{
		{err: rateLimitErr("google")},
		{err: rateLimitErr("google")},
		{comps: googleComponents()},
	}}
	var sleeps []time.Duration
	opts := RawOptions{
		Adapter: adapter,
		Sleep:   func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	if _, err := r.CreateAddressFromRaw(ctx, "1600 Amphitheatre Pkwy, Mountain View, CA", opts); err != nil {
		t.Fatal(err)
	}
	if adapter.calls != 3 {
		t.Errorf("adapter called %d times, want 3", adapter.calls)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("slept %d times, want %d", len(sleeps), len(want))
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestGeocodeRetryExhaustionSurfacesRateLimit(t *testing.T) {
	r, _ := newTestResolver()

	adapter := &scriptedAdapter{responses: []scriptedResponse{{err: rateLimitErr("google")}}}
	opts := RawOptions{Adapter: adapter, Sleep: func(time.Duration) {}}

	_, err := r.CreateAddressFromRaw(context.Background(), "1600 Amphitheatre Pkwy", opts)
	if err == nil {
		t.Fatal("expected rate-limit error after exhausting retries")
	}
	if !geocode.IsRateLimit(err) {
		t.Errorf("error is not a rate-limit error: %v", err)
	}
	if adapter.calls != 3 {
		t.Errorf("adapter called %d times, want 3", adapter.calls)
	}
}

func TestGeocodeGenericErrorFallsBackToParser(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	adapter := &scriptedAdapter{responses: []scriptedResponse{
		{err: &geocode.Error{Kind: geocode.KindGeneric, Provider: "google", Message: "boom"}},
	}}
	address, err := r.CreateAddressFromRaw(ctx, "742 Evergreen Terrace, Springfield, IL 62704", RawOptions{Adapter: adapter})
	if err != nil {
		t.Fatal(err)
	}
	if adapter.calls != 1 {
		t.Errorf("generic errors must not be retried; adapter called %d times", adapter.calls)
	}

	sources, _ := store.ListSources(ctx, address.ID)
	if len(sources) != 1 || sources[0].Provider != ProviderParser {
		t.Errorf("expected parser provenance after fallback, got %+v", sources)
	}
}

func TestGeocodeGenericErrorSurfacedWhenAsked(t *testing.T) {
	r, _ := newTestResolver()

	adapter := &scriptedAdapter{responses: []scriptedResponse{
		{err: &geocode.Error{Kind: geocode.KindGeneric, Provider: "google", Message: "boom"}},
	}}
	opts := RawOptions{Adapter: adapter, SurfaceGeocodeErrors: true}

	if _, err := r.CreateAddressFromRaw(context.Background(), "742 Evergreen Terrace", opts); err == nil {
		t.Fatal("expected the generic error to surface")
	}
}

func TestGeocodeRetryBaseDelayCapped(t *testing.T) {
	r, _ := newTestResolver()

	adapter := &scriptedAdapter{responses: []scriptedResponse{
		{err: rateLimitErr("google")},
		{comps: googleComponents()},
	}}
	var sleeps []time.Duration
	opts := RawOptions{
		Adapter: adapter,
		Retry: geocode.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   5 * time.Second,
			MaxDelay:    time.Second,
		},
		Sleep: func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	if _, err := r.CreateAddressFromRaw(context.Background(), "1600 Amphitheatre Pkwy, Mountain View, CA", opts); err != nil {
		t.Fatal(err)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Second {
		t.Errorf("sleeps = %v, want the first delay capped at 1s", sleeps)
	}
}

func TestGeocodeFuncErrorsPropagate(t *testing.T) {
	r, _ := newTestResolver()

	boom := errors.New("upstream unavailable")
	opts := RawOptions{GeocodeFunc: func(context.Context, string) (*geocode.Components, error) {
		return nil, boom
	}}

	_, err := r.CreateAddressFromRaw(context.Background(), "742 Evergreen Terrace", opts)
	if !errors.Is(err, boom) {
		t.Errorf("plain geocode func error not propagated: %v", err)
	}
}

func TestGeocodeFuncTagsDefaultProvider(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	opts := RawOptions{GeocodeFunc: func(context.Context, string) (*geocode.Components, error) {
		comps := googleComponents()
		comps.Provider = ""
		return comps, nil
	}}

	address, err := r.CreateAddressFromRaw(ctx, "1600 Amphitheatre Pkwy, Mountain View, CA", opts)
	if err != nil {
		t.Fatal(err)
	}
	sources, err := store.ListSources(ctx, address.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].Provider != ProviderGeocoder {
		t.Errorf("anonymous geocode func should record a %q source, got %+v", ProviderGeocoder, sources)
	}
}

func TestCreateAddressFromRawStandardizesProviderFormatted(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	comps := googleComponents()
	comps.Formatted = "1600 Amphitheatre Pkwy, Mountain View, CA 94043"
	adapter := &scriptedAdapter{responses: []scriptedResponse{{comps: comps}}}

	address, err := r.CreateAddressFromRaw(ctx, "1600 amphitheatre pkwy mountain view", RawOptions{Adapter: adapter})
	if err != nil {
		t.Fatal(err)
	}
	// Abbreviation-differing provider outputs must converge on one
	// standardized dedup raw.
	if address.Raw != "1600 Amphitheatre Parkway, Mountain View, CA 94043" {
		t.Errorf("provider formatted not standardized for dedup: %q", address.Raw)
	}
}

func TestRenormalizeReparsesRaw(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	// A record ingested before the parser understood its shape: raw only.
	stale, err := store.CreateAddress(ctx, &models.Address{
		Raw: "742 Evergreen Terrace, Springfield, IL 62704",
	})
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := r.Renormalize(ctx, stale.ID, RawOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.StreetNumber != "742" || refreshed.StreetName != "Evergreen" {
		t.Errorf("street not reparsed: %q %q", refreshed.StreetNumber, refreshed.StreetName)
	}
	if refreshed.StreetType != "Terrace" {
		t.Errorf("StreetType = %q, want Terrace", refreshed.StreetType)
	}
	if refreshed.LocalityID.IsZero() {
		t.Error("renormalize did not resolve the locality")
	}

	stored, err := store.GetAddress(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.StreetNumber != "742" {
		t.Error("reparsed fields not persisted")
	}
}

func TestGeocodeEmptyResultFallsBackToParser(t *testing.T) {
	r, store := newTestResolver()
	ctx := context.Background()

	adapter := &scriptedAdapter{responses: []scriptedResponse{
		{comps: &geocode.Components{Provider: "google"}},
	}}
	address, err := r.CreateAddressFromRaw(ctx, "742 Evergreen Terrace, Springfield, IL 62704", RawOptions{Adapter: adapter})
	if err != nil {
		t.Fatal(err)
	}
	sources, _ := store.ListSources(ctx, address.ID)
	if len(sources) != 1 || sources[0].Provider != ProviderParser {
		t.Errorf("expected parser provenance, got %+v", sources)
	}
}
