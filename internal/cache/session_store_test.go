package cache

import (
	"context"
	"testing"
	"time"
)

type draft struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	if err := store.Set(ctx, "checkout:1:buy_now", draft{VariantID: 7, Quantity: 2}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var got draft
	found, err := store.Get(ctx, "checkout:1:buy_now", &got)
	if err != nil || !found {
		t.Fatalf("get want found, got found=%v err=%v", found, err)
	}
	if got.VariantID != 7 || got.Quantity != 2 {
		t.Fatalf("unexpected draft: %+v", got)
	}

	if err := store.Clear(ctx, "checkout:1:buy_now"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	found, err = store.Get(ctx, "checkout:1:buy_now", &got)
	if err != nil || found {
		t.Fatalf("expected cleared key, got found=%v err=%v", found, err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	ctx := context.Background()

	if err := store.Set(ctx, "registration:abc", "pending", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "checkout:2:use_wallet", true, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	store.now = func() time.Time { return base.Add(10 * time.Minute) }
	var value string
	found, err := store.Get(ctx, "registration:abc", &value)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Fatalf("key should expire exactly at ttl")
	}

	if removed := store.Sweep(); removed != 0 {
		t.Fatalf("sweep want 0 (already evicted by get) got %d", removed)
	}
	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("sweep want 1 got %d", removed)
	}
}

func TestNewSessionStoreFallsBackToMemory(t *testing.T) {
	redisEnabled = false
	if _, ok := NewSessionStore().(*MemorySessionStore); !ok {
		t.Fatalf("expected memory store when redis disabled")
	}
}

func TestBuildKey(t *testing.T) {
	if got := buildKey("ts", " auth:user:1 "); got != "ts:auth:user:1" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := buildKey("ts", ""); got != "ts" {
		t.Fatalf("unexpected empty key %s", got)
	}
}
