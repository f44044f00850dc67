package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// MemoryConfig holds configuration for the in-memory cache backend.
type MemoryConfig struct {
	// TTL is how long an entry stays valid after Set.
	TTL time.Duration

	// MaxEntries bounds the cache size. When full, the oldest-inserted
	// entry is evicted first. Zero means unbounded (not recommended: cache
	// keys are client-controlled).
	MaxEntries int
}

type memoryEntry[V any] struct {
	value    V
	storedAt time.Time
	seq      uint64
}

// Memory is a mutex-guarded TTL map with oldest-inserted-first eviction and
// an optional background sweeper.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[model.VideoID]memoryEntry[V]
	order   []orderRef
	seq     uint64

	ttl        time.Duration
	maxEntries int

	// now is injectable for tests.
	now func() time.Time
}

type orderRef struct {
	id  model.VideoID
	seq uint64
}

// NewMemory creates an in-memory cache.
func NewMemory[V any](cfg MemoryConfig) *Memory[V] {
	return &Memory[V]{
		entries:    make(map[model.VideoID]memoryEntry[V]),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
	}
}

var _ Cache[string] = (*Memory[string])(nil)

// Get returns the cached value for id. An expired entry counts as a miss and
// is removed immediately, independent of the background sweep.
func (m *Memory[V]) Get(_ context.Context, id model.VideoID) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[id]
	if !ok {
		return zero, false, nil
	}
	if m.expired(e, m.now()) {
		delete(m.entries, id)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set inserts or replaces the value for id, stamping the current time.
func (m *Memory[V]) Set(_ context.Context, id model.VideoID, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.entries[id] = memoryEntry[V]{value: value, storedAt: m.now(), seq: m.seq}
	m.order = append(m.order, orderRef{id: id, seq: m.seq})
	m.evictOverflow()
	return nil
}

// Clear empties the cache and returns the prior occupancy.
func (m *Memory[V]) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	m.entries = make(map[model.VideoID]memoryEntry[V])
	m.order = nil
	return n, nil
}

// Len returns the current occupancy, counting only unexpired entries.
func (m *Memory[V]) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, e := range m.entries {
		if !m.expired(e, now) {
			n++
		}
	}
	return n, nil
}

// StartSweeper runs a background sweep evicting expired entries every
// interval until ctx is cancelled.
func (m *Memory[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, id)
		}
	}
	m.compactOrder()
}

func (m *Memory[V]) expired(e memoryEntry[V], now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.storedAt) > m.ttl
}

// evictOverflow drops oldest-inserted entries until the bound holds.
// Order refs whose seq no longer matches the live entry are replacements
// or already-deleted keys and are skipped.
func (m *Memory[V]) evictOverflow() {
	if m.maxEntries <= 0 {
		return
	}
	for len(m.entries) > m.maxEntries && len(m.order) > 0 {
		ref := m.order[0]
		m.order = m.order[1:]
		if e, ok := m.entries[ref.id]; ok && e.seq == ref.seq {
			delete(m.entries, ref.id)
		}
	}
}

// compactOrder drops refs pointing at dead entries so the order slice does
// not grow without bound under heavy replacement.
func (m *Memory[V]) compactOrder() {
	live := m.order[:0]
	for _, ref := range m.order {
		if e, ok := m.entries[ref.id]; ok && e.seq == ref.seq {
			live = append(live, ref)
		}
	}
	m.order = live
}
