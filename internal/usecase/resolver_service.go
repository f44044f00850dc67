package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/extractor"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/cache"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/metrics"
)

// WarmPublisher hands a warm task to an out-of-process worker. Optional; when
// absent, warming runs in-process.
type WarmPublisher interface {
	PublishWarmTask(ctx context.Context, id model.VideoID) error
}

// CacheStats reports cache occupancy and in-flight resolution counts.
type CacheStats struct {
	StreamEntries int
	InfoEntries   int
	PendingStream int
	PendingInfo   int
}

// ClearResult reports how many entries each cache held before a clear.
type ClearResult struct {
	StreamEntries int
	InfoEntries   int
}

// Resolver turns identifiers into cached stream resolutions and track
// metadata, collapsing concurrent resolutions per identifier.
type Resolver interface {
	// ResolveStream returns the upstream media location for an identifier,
	// from cache when fresh, otherwise via a single shared extraction.
	ResolveStream(ctx context.Context, id model.VideoID) (*model.StreamResolution, error)

	// ResolveInfo returns display metadata, with the same cache/dedup shape
	// as ResolveStream but an independent namespace and TTL.
	ResolveInfo(ctx context.Context, id model.VideoID) (*model.TrackInfo, error)

	// WarmStream starts a fire-and-forget stream resolution so a later GET
	// hits the cache. Used by HEAD existence probes.
	WarmStream(id model.VideoID)

	// Stats returns cache occupancy and pending counts.
	Stats(ctx context.Context) (CacheStats, error)

	// ClearCaches empties both caches and returns their prior sizes.
	ClearCaches(ctx context.Context) (ClearResult, error)
}

// ResolverConfig holds configuration for the resolver service.
type ResolverConfig struct {
	// WarmTimeout bounds an in-process background warm.
	WarmTimeout time.Duration
}

// DefaultResolverConfig returns the default configuration.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		WarmTimeout: 30 * time.Second,
	}
}

// resolverService owns the two caches and the two deduplication namespaces.
// One instance exists per process, constructed in main and passed to
// handlers.
type resolverService struct {
	ext         extractor.Client
	streamCache cache.Cache[model.StreamResolution]
	infoCache   cache.Cache[model.TrackInfo]

	// One singleflight group per deduplication namespace. Settlement removes
	// the key atomically, so a call arriving after settlement starts fresh.
	streamGroup singleflight.Group
	infoGroup   singleflight.Group

	pendingStream atomic.Int32
	pendingInfo   atomic.Int32

	warmQueue   WarmPublisher
	warmTimeout time.Duration
	logger      *slog.Logger
}

// NewResolver creates the resolver service. warmQueue may be nil.
func NewResolver(
	ext extractor.Client,
	streamCache cache.Cache[model.StreamResolution],
	infoCache cache.Cache[model.TrackInfo],
	warmQueue WarmPublisher,
	cfg ResolverConfig,
	logger *slog.Logger,
) Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &resolverService{
		ext:         ext,
		streamCache: streamCache,
		infoCache:   infoCache,
		warmQueue:   warmQueue,
		warmTimeout: cfg.WarmTimeout,
		logger:      logger,
	}
}

func (s *resolverService) ResolveStream(ctx context.Context, id model.VideoID) (*model.StreamResolution, error) {
	return resolve(ctx, s, metrics.CacheStream, &s.streamGroup, &s.pendingStream, id,
		s.streamCache, s.ext.ResolveStream)
}

func (s *resolverService) ResolveInfo(ctx context.Context, id model.VideoID) (*model.TrackInfo, error) {
	return resolve(ctx, s, metrics.CacheInfo, &s.infoGroup, &s.pendingInfo, id,
		s.infoCache, s.ext.ResolveInfo)
}

// resolve is the shared cache-aside path: cache lookup, then a deduplicated
// extraction whose outcome every concurrent caller for the same identifier
// observes. The shared flight is detached from any single caller's context;
// the extractor's own timeout bounds it, so one client disconnecting cannot
// fail the other waiters.
func resolve[V any](
	ctx context.Context,
	s *resolverService,
	ns string,
	group *singleflight.Group,
	pending *atomic.Int32,
	id model.VideoID,
	c cache.Cache[V],
	fetch func(context.Context, model.VideoID) (*V, error),
) (*V, error) {
	if v, ok, err := c.Get(ctx, id); err != nil {
		s.logger.Warn("cache get failed, falling through to extraction",
			slog.String("cache", ns),
			slog.String("video_id", id.String()),
			slog.String("error", err.Error()),
		)
	} else if ok {
		metrics.CacheOperationsTotal.WithLabelValues(ns, metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
		return &v, nil
	}
	metrics.CacheOperationsTotal.WithLabelValues(ns, metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()

	flightCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(id.String(), func() (any, error) {
		pending.Add(1)
		defer pending.Add(-1)

		v, err := fetch(flightCtx, id)
		if err != nil {
			return nil, err
		}
		if err := c.Set(flightCtx, id, *v); err != nil {
			metrics.CacheOperationsTotal.WithLabelValues(ns, metrics.CacheOpSet, metrics.CacheStatusError).Inc()
			s.logger.Warn("cache set failed",
				slog.String("cache", ns),
				slog.String("video_id", id.String()),
				slog.String("error", err.Error()),
			)
		} else {
			metrics.CacheOperationsTotal.WithLabelValues(ns, metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		// The caller is gone; the flight keeps running for other waiters and
		// settles into the cache.
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(ns, metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(ns, metrics.SingleflightInitiated).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*V), nil
	}
}

// WarmStream resolves an identifier in the background. When a warm queue is
// configured the task is delegated to the warmer process; otherwise it runs
// in-process with its own deadline, deduplicated like any other resolution.
func (s *resolverService) WarmStream(id model.VideoID) {
	if s.warmQueue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.warmQueue.PublishWarmTask(ctx, id); err == nil {
			return
		} else {
			s.logger.Warn("warm publish failed, warming in-process",
				slog.String("video_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.warmTimeout)
		defer cancel()
		if _, err := s.ResolveStream(ctx, id); err != nil {
			s.logger.Debug("background warm failed",
				slog.String("video_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *resolverService) Stats(ctx context.Context) (CacheStats, error) {
	streamLen, err := s.streamCache.Len(ctx)
	if err != nil {
		return CacheStats{}, err
	}
	infoLen, err := s.infoCache.Len(ctx)
	if err != nil {
		return CacheStats{}, err
	}
	return CacheStats{
		StreamEntries: streamLen,
		InfoEntries:   infoLen,
		PendingStream: int(s.pendingStream.Load()),
		PendingInfo:   int(s.pendingInfo.Load()),
	}, nil
}

func (s *resolverService) ClearCaches(ctx context.Context) (ClearResult, error) {
	streamN, err := s.streamCache.Clear(ctx)
	if err != nil {
		return ClearResult{}, err
	}
	infoN, err := s.infoCache.Clear(ctx)
	if err != nil {
		return ClearResult{}, err
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheStream, metrics.CacheOpClear, metrics.CacheStatusSuccess).Inc()
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheInfo, metrics.CacheOpClear, metrics.CacheStatusSuccess).Inc()
	return ClearResult{StreamEntries: streamN, InfoEntries: infoN}, nil
}
