package services

import (
	"context"
	"testing"
)

func TestLRUCacheService(t *testing.T) {
	cache, err := NewLRUCacheService(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "missing"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	if err := cache.Set(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if value, ok := cache.Get(ctx, "a"); !ok || value != "1" {
		t.Fatalf("Get(a) = (%q, %v)", value, ok)
	}

	// Capacity 2: adding two more evicts the oldest entry.
	cache.Set(ctx, "b", "2")
	cache.Set(ctx, "c", "3")
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("oldest entry should have been evicted")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want 1 hit / 2 misses", stats)
	}
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
}

func TestLRUCacheDelete(t *testing.T) {
	cache, err := NewLRUCacheService(4)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	cache.Set(ctx, "a", "1")
	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("deleted entry still present")
	}
}

func TestHybridCachePromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l1, _ := NewLRUCacheService(4)
	l2, _ := NewLRUCacheService(4)
	hybrid := NewHybridCacheService(l1, l2)

	// Seed only the L2 layer, as if another process had written it.
	l2.Set(ctx, "shared", "value")

	value, ok := hybrid.Get(ctx, "shared")
	if !ok || value != "value" {
		t.Fatalf("Get = (%q, %v)", value, ok)
	}
	// The read must have filled L1.
	if v, ok := l1.Get(ctx, "shared"); !ok || v != "value" {
		t.Error("L2 hit did not promote the entry into L1")
	}
}

func TestHybridCacheWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	l1, _ := NewLRUCacheService(4)
	l2, _ := NewLRUCacheService(4)
	hybrid := NewHybridCacheService(l1, l2)

	if err := hybrid.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if _, ok := l1.Get(ctx, "k"); !ok {
		t.Error("write missed L1")
	}
	if _, ok := l2.Get(ctx, "k"); !ok {
		t.Error("write missed L2")
	}

	if err := hybrid.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := hybrid.Get(ctx, "k"); ok {
		t.Error("delete left the entry behind")
	}
}
