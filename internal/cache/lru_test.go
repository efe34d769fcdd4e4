package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int64, string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, 0)
	c.Set(1, "one")
	c.Set(2, "two")
	if _, ok := c.Get(1); !ok {
		t.Fatalf("expected hit for 1")
	}
	c.Set(3, "three")

	if _, ok := c.Get(2); ok {
		t.Fatalf("2 should have been evicted")
	}
	if v, ok := c.Get(1); !ok || v != "one" {
		t.Fatalf("expected one, got %q %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set(1, "one")
	c.Set(2, "two")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set(3, "three")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get(1); ok {
		t.Fatalf("1 should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned (2), got %d", n)
	}
	if v, ok := c.Get(3); !ok || v != "three" {
		t.Fatalf("3 should still be live")
	}
}

func TestGetOrCompute(t *testing.T) {
	c, _ := newTestCache(4, 0)
	calls := 0
	compute := func() string { calls++; return "v" }
	for i := 0; i < 3; i++ {
		if got := c.GetOrCompute(7, compute); got != "v" {
			t.Fatalf("unexpected %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times", calls)
	}
	c.Delete(7)
	c.GetOrCompute(7, compute)
	if calls != 2 {
		t.Fatalf("expected recompute after delete, got %d calls", calls)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c, clk := newTestCache(4, time.Second)
	c.Set(1, "one")
	clk.t = clk.t.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register("summary", c)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
