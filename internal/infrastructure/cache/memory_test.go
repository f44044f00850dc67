package cache

import (
	"context"
	"testing"
	"time"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestMemory(cfg MemoryConfig) (*Memory[string], *fakeClock) {
	m := NewMemory[string](cfg)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m.now = clock.Now
	return m, clock
}

func TestMemory_SetThenGet(t *testing.T) {
	m, _ := newTestMemory(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	if err := m.Set(ctx, "dQw4w9WgXcQ", "https://upstream/audio"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := m.Get(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hit, got miss")
	}
	if got != "https://upstream/audio" {
		t.Errorf("Get = %q, want %q", got, "https://upstream/audio")
	}
}

func TestMemory_GetMissOnAbsent(t *testing.T) {
	m, _ := newTestMemory(MemoryConfig{TTL: time.Hour})

	_, ok, err := m.Get(context.Background(), "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemory_ExpiryEvictsLazily(t *testing.T) {
	m, clock := newTestMemory(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	if err := m.Set(ctx, "dQw4w9WgXcQ", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(time.Hour + time.Second)

	if _, ok, _ := m.Get(ctx, "dQw4w9WgXcQ"); ok {
		t.Fatal("expected miss after TTL")
	}

	// Lazy eviction must have removed the stale entry from occupancy.
	n, err := m.Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Len = %d after expiry, want 0", n)
	}
}

func TestMemory_SetRestartsTTL(t *testing.T) {
	m, clock := newTestMemory(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "dQw4w9WgXcQ", "old")
	clock.Advance(50 * time.Minute)
	m.Set(ctx, "dQw4w9WgXcQ", "new")
	clock.Advance(30 * time.Minute)

	got, ok, _ := m.Get(ctx, "dQw4w9WgXcQ")
	if !ok {
		t.Fatal("expected hit, replacement should restart TTL")
	}
	if got != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
}

func TestMemory_Clear(t *testing.T) {
	m, _ := newTestMemory(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "aaaaaaaaaaa", "1")
	m.Set(ctx, "bbbbbbbbbbb", "2")

	n, err := m.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}

	if _, ok, _ := m.Get(ctx, "aaaaaaaaaaa"); ok {
		t.Error("entry survived Clear")
	}
}

func TestMemory_BoundedEvictsOldestInserted(t *testing.T) {
	m, _ := newTestMemory(MemoryConfig{TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	m.Set(ctx, "aaaaaaaaaaa", "1")
	m.Set(ctx, "bbbbbbbbbbb", "2")
	m.Set(ctx, "ccccccccccc", "3")

	if _, ok, _ := m.Get(ctx, "aaaaaaaaaaa"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok, _ := m.Get(ctx, "bbbbbbbbbbb"); !ok {
		t.Error("second entry should survive")
	}
	if _, ok, _ := m.Get(ctx, "ccccccccccc"); !ok {
		t.Error("newest entry should survive")
	}
}

func TestMemory_BoundedReplacementDoesNotEvict(t *testing.T) {
	m, _ := newTestMemory(MemoryConfig{TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	m.Set(ctx, "aaaaaaaaaaa", "1")
	m.Set(ctx, "bbbbbbbbbbb", "2")
	// Replacing an existing key must not count against the bound.
	m.Set(ctx, "aaaaaaaaaaa", "1b")

	if n, _ := m.Len(ctx); n != 2 {
		t.Fatalf("Len = %d, want 2", n)
	}
	got, ok, _ := m.Get(ctx, "aaaaaaaaaaa")
	if !ok || got != "1b" {
		t.Errorf("Get = %q, %v; want replacement value", got, ok)
	}
}

func TestMemory_SweepRemovesExpired(t *testing.T) {
	m, clock := newTestMemory(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	m.Set(ctx, "aaaaaaaaaaa", "1")
	clock.Advance(2 * time.Hour)
	m.Set(ctx, "bbbbbbbbbbb", "2")

	m.sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[model.VideoID("aaaaaaaaaaa")]; ok {
		t.Error("sweep left expired entry in map")
	}
	if _, ok := m.entries[model.VideoID("bbbbbbbbbbb")]; !ok {
		t.Error("sweep removed live entry")
	}
}
