package cache

import (
	"context"
	"testing"
	"time"
)

type flags struct {
	Step string `json:"step"`
	N    int    `json:"n"`
}

func TestMemoryCache_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.SetJSON(ctx, "k", flags{Step: "camera", N: 2}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got flags
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil || !hit || got.Step != "camera" || got.N != 2 {
		t.Fatalf("hit=%v err=%v got=%+v", hit, err, got)
	}

	now = now.Add(time.Minute)
	if hit, _ := c.GetJSON(ctx, "k", &got); hit {
		t.Fatalf("entry should have expired")
	}
}

func TestMemoryCache_NoTTLAndDel(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	_ = c.SetJSON(ctx, "a", 1, 0)
	_ = c.SetJSON(ctx, "b", 2, 0)

	var n int
	if hit, _ := c.GetJSON(ctx, "a", &n); !hit || n != 1 {
		t.Fatalf("a = %d, hit %v", n, hit)
	}
	if err := c.Del(ctx, "a", "b", "missing"); err != nil {
		t.Fatal(err)
	}
	if hit, _ := c.GetJSON(ctx, "b", &n); hit {
		t.Fatalf("b not deleted")
	}
}

func TestMemoryCache_CorruptIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	_ = c.SetJSON(ctx, "k", "text", 0)

	var f flags
	if hit, err := c.GetJSON(ctx, "k", &f); hit || err != nil {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	c.mu.Lock()
	_, still := c.m["k"]
	c.mu.Unlock()
	if still {
		t.Fatalf("corrupt entry kept")
	}
}

func TestKey(t *testing.T) {
	if got := Key("progress", "default"); got != "mockinterview:progress:default" {
		t.Fatalf("Key = %q", got)
	}
}

func TestFileCache_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nested/state.json"

	a, err := NewFileCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetJSON(ctx, "p", flags{Step: "setup"}, 0); err != nil {
		t.Fatal(err)
	}

	b, _ := NewFileCache(path)
	var got flags
	if hit, err := b.GetJSON(ctx, "p", &got); !hit || err != nil || got.Step != "setup" {
		t.Fatalf("hit=%v err=%v got=%+v", hit, err, got)
	}

	if err := b.Del(ctx, "p"); err != nil {
		t.Fatal(err)
	}
	if hit, _ := a.GetJSON(ctx, "p", &got); hit {
		t.Fatalf("deleted entry still visible")
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir() + "/state.json")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.SetJSON(ctx, "k", 5, time.Second)
	var n int
	if hit, _ := c.GetJSON(ctx, "k", &n); !hit || n != 5 {
		t.Fatalf("fresh entry missing")
	}
	now = now.Add(time.Second)
	if hit, _ := c.GetJSON(ctx, "k", &n); hit {
		t.Fatalf("expired entry returned")
	}
}
