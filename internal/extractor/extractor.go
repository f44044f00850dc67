// Package extractor wraps the external extraction tool (yt-dlp) that turns a
// content identifier into downloadable media locations and metadata. The tool
// is slow and rate-limited, so callers are expected to cache and deduplicate
// around this package.
package extractor

import (
	"context"
	"time"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// Client defines the extraction operations the resolver depends on.
type Client interface {
	// ResolveStream resolves an identifier into the best audio-only media
	// URL. Fails with model.ErrContentUnavailable, model.ErrExtractionTimeout
	// or model.ErrNoAudioFormat as appropriate.
	ResolveStream(ctx context.Context, id model.VideoID) (*model.StreamResolution, error)

	// ResolveInfo resolves display metadata for an identifier. Missing
	// upstream fields are replaced with fallbacks, never surfaced as errors.
	ResolveInfo(ctx context.Context, id model.VideoID) (*model.TrackInfo, error)

	// Search returns up to limit results for a free-text query.
	Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error)
}

// Config holds configuration for the yt-dlp client.
type Config struct {
	// Path is the yt-dlp binary. If empty, "yt-dlp" is resolved from PATH.
	Path string

	// StreamTimeout bounds a single stream-resolution attempt.
	StreamTimeout time.Duration

	// InfoTimeout bounds a single metadata-resolution attempt. Metadata
	// tolerates a longer deadline since it is served from a long-TTL cache.
	InfoTimeout time.Duration

	// SearchTimeout bounds a search invocation.
	SearchTimeout time.Duration
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Path:          "yt-dlp",
		StreamTimeout: 10 * time.Second,
		InfoTimeout:   45 * time.Second,
		SearchTimeout: 20 * time.Second,
	}
}
