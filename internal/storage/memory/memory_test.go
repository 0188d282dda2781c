package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStore_SetGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (v, true, nil)", value, ok, err)
	}

	_, ok, err = store.Get(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("Get missing = (_, %v, %v), want (false, nil)", ok, err)
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(61 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expired key should read as absent")
	}
}

func TestStore_IncrementAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrementAndGet(ctx, "counter")
		if err != nil {
			t.Fatalf("IncrementAndGet: %v", err)
		}
		if got != want {
			t.Errorf("IncrementAndGet = %d, want %d", got, want)
		}
	}
}

func TestStore_IncrementConcurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementAndGet(ctx, "counter"); err != nil {
				t.Errorf("IncrementAndGet: %v", err)
			}
		}()
	}
	wg.Wait()

	value, ok, err := store.Get(ctx, "counter")
	if err != nil || !ok {
		t.Fatalf("Get = (_, %v, %v)", ok, err)
	}
	if value != "100" {
		t.Errorf("counter = %s, want 100: increments lost under concurrency", value)
	}
}

func TestStore_Expire(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Expire(ctx, "k", time.Second); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	// Expire on an absent key is a no-op
	if err := store.Expire(ctx, "missing", time.Second); err != nil {
		t.Fatalf("Expire on missing key: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("key should expire after Expire TTL passes")
	}
}

func TestStore_CleanupSweep(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	store.Set(ctx, "a", "1", time.Second)
	store.Set(ctx, "b", "1", time.Second)
	store.Set(ctx, "c", "1", 0) // no expiry

	now = now.Add(2 * time.Second)
	if removed := store.Cleanup(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, ok, _ := store.Get(ctx, "c"); !ok {
		t.Error("sweep must not touch keys without a TTL")
	}
}
