package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	type record struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	if err := c.Set(ctx, "k1", record{Name: "a", Value: 1.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got record
	if err := c.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Value != 1.5 {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	var out []byte
	if err := c.Get(context.Background(), "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var out string
	if err := c.Get(ctx, "k1", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestMemoryCacheKeysPrefix(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	for _, k := range []string{"baseline:a", "baseline:b", "gate:x"} {
		if err := c.Set(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	keys, err := c.Keys(ctx, "baseline:*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err := c.Exists(ctx, "k1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatalf("expected key gone")
	}
}
