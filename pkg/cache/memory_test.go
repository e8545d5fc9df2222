package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.SetTTL(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got != "v" {
		t.Fatalf("get: got (%q, %v, %v)", got, ok, err)
	}

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatal("missing key should not be found")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.SetTTL(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry should not be returned")
	}
}

func TestMemoryCacheIncr(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "hits", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("incr returned %d, want %d", got, want)
		}
	}

	// An expired counter restarts from zero.
	if _, err := c.Incr(ctx, "burst", 10*time.Millisecond); err != nil {
		t.Fatalf("incr: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	got, err := c.Incr(ctx, "burst", time.Minute)
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if got != 1 {
		t.Fatalf("expired counter should restart at 1, got %d", got)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.SetTTL(ctx, "a", "1", time.Minute)
	_ = c.SetTTL(ctx, "b", "2", time.Minute)

	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("deleted key a still present")
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("deleted key b still present")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.SetTTL(ctx, "notifications:list:1:1:20", "x", time.Minute)
	_ = c.SetTTL(ctx, "notifications:list:1:2:20", "y", time.Minute)
	_ = c.SetTTL(ctx, "notifications:list:2:1:20", "z", time.Minute)

	if err := c.DeletePrefix(ctx, "notifications:list:1:"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "notifications:list:1:1:20"); ok {
		t.Fatal("prefixed key should be gone")
	}
	if _, ok, _ := c.Get(ctx, "notifications:list:1:2:20"); ok {
		t.Fatal("prefixed key should be gone")
	}
	if _, ok, _ := c.Get(ctx, "notifications:list:2:1:20"); !ok {
		t.Fatal("other user's key must survive")
	}
}
