package services

import (
	"context"
	"testing"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/resolver"
	"github.com/address-kit/internal/storage"
)

func TestAdminStats(t *testing.T) {
	store := storage.NewMemStore()
	cache, _ := NewLRUCacheService(8)
	svc := NewAdminService(store, resolver.New(store, nil), cache, nil)
	ctx := context.Background()

	if _, err := store.CreateAddress(ctx, &models.Address{Raw: "55 Oak St, Dover, DE 19901"}); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Addresses != 1 {
		t.Errorf("Addresses = %d, want 1", stats.Addresses)
	}
	if stats.Cache == nil {
		t.Error("cache stats missing")
	}
}

func TestRenormalizeAllReparsesRawOnlyRecords(t *testing.T) {
	store := storage.NewMemStore()
	svc := NewAdminService(store, resolver.New(store, nil), nil, nil)
	ctx := context.Background()

	// Records stored before structured parsing existed: raw only.
	raws := []string{
		"742 Evergreen Terrace, Springfield, IL 62704",
		"55 Oak St, Dover, DE 19901",
	}
	var ids []*models.Address
	for _, raw := range raws {
		address, err := store.CreateAddress(ctx, &models.Address{Raw: raw})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, address)
	}

	processed, err := svc.RenormalizeAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}

	first, err := store.GetAddress(ctx, ids[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.StreetNumber != "742" || first.StreetName != "Evergreen" {
		t.Errorf("structured fields not rebuilt from raw: %q %q", first.StreetNumber, first.StreetName)
	}
	if first.LocalityID.IsZero() {
		t.Error("renormalize sweep did not resolve the locality")
	}
}

func TestLookupIdentifierUnknown(t *testing.T) {
	store := storage.NewMemStore()
	svc := NewAdminService(store, resolver.New(store, nil), nil, nil)

	detail, err := svc.LookupIdentifier(context.Background(), "google", "missing")
	if err != nil || detail != nil {
		t.Errorf("unknown identifier = (%v, %v), want (nil, nil)", detail, err)
	}
}
