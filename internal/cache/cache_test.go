package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)
	exp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Set(ctx, "a", Entry{Snapshot: []byte("A"), ExpiresAt: exp})
	c.Set(ctx, "b", Entry{Snapshot: []byte("B"), ExpiresAt: exp})
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("a missing")
	}
	c.Set(ctx, "c", Entry{Snapshot: []byte("C"), ExpiresAt: exp})

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if e, ok := c.Get(ctx, "a"); !ok || string(e.Snapshot) != "A" {
		t.Errorf("a = %q, %v", e.Snapshot, ok)
	}
	if c.Len() != 2 {
		t.Errorf("len = %d", c.Len())
	}
}

func TestLRU_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(0)
	c.Set(ctx, "k", Entry{Snapshot: []byte("v")})
	c.Invalidate(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("k still cached")
	}
	c.Invalidate(ctx, "missing")
}
