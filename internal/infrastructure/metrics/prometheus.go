// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

const namespace = "audiorelay"

var (
	// CacheOperationsTotal tracks cache operations.
	// Labels:
	//   - cache: stream, info
	//   - operation: get, set, clear
	//   - status: hit, miss, success, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"cache", "operation", "status"},
	)

	// SingleflightRequestsTotal tracks in-flight request collapsing.
	// Labels:
	//   - namespace: stream, info
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"namespace", "result"},
	)

	// ExtractionDuration tracks yt-dlp invocations by strategy and outcome.
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of extraction subprocess invocations",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"strategy", "outcome"},
	)

	// RelayRequestsTotal tracks relay outcomes.
	// Labels:
	//   - outcome: completed, client_aborted, upstream_error
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_requests_total",
			Help:      "Total number of relayed stream requests",
		},
		[]string{"outcome"},
	)

	// RelayBytesTotal counts media bytes relayed to clients.
	RelayBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Total number of media bytes relayed to clients",
		},
	)
)

// Cache label values.
const (
	CacheStream = "stream"
	CacheInfo   = "info"

	CacheOpGet   = "get"
	CacheOpSet   = "set"
	CacheOpClear = "clear"

	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Singleflight label values.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Relay label values.
const (
	RelayCompleted     = "completed"
	RelayClientAborted = "client_aborted"
	RelayUpstreamError = "upstream_error"
)

// ObserveExtraction records a single extraction attempt.
func ObserveExtraction(strategy string, err error, elapsed time.Duration) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrExtractionTimeout):
		outcome = "timeout"
	case errors.Is(err, model.ErrContentUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	ExtractionDuration.WithLabelValues(strategy, outcome).Observe(elapsed.Seconds())
}
