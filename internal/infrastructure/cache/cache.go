// Package cache provides TTL-bounded key/value stores for resolved stream
// URLs and track metadata. Two backends exist: an in-process bounded map
// (default) and Redis for deployments that share cache state across
// processes. Both are disposable; nothing in them is authoritative.
package cache

import (
	"context"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// Cache is a TTL-bounded store keyed by video ID.
// Implementations must treat an expired entry as a miss and evict it.
type Cache[V any] interface {
	// Get retrieves a value by ID. The second return is false on a miss
	// (absent or expired).
	Get(ctx context.Context, id model.VideoID) (V, bool, error)

	// Set inserts or replaces the value for an ID, restarting its TTL.
	Set(ctx context.Context, id model.VideoID, value V) error

	// Clear empties the cache and returns the prior occupancy.
	Clear(ctx context.Context) (int, error)

	// Len returns the current occupancy.
	Len(ctx context.Context) (int, error)
}
