// Package relay proxies upstream media bytes to clients, preserving HTTP
// range semantics. Bytes are piped as received; the media body is never
// buffered in memory.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/metrics"
)

// allowedHeaders is the fixed allow-list copied from the upstream response.
var allowedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
}

// Config holds configuration for the relay.
type Config struct {
	// HeaderTimeout bounds the wait for upstream response headers. Body
	// streaming is unbounded and cancelled through the client's context.
	HeaderTimeout time.Duration

	// UserAgent is sent on upstream fetches.
	UserAgent string
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig() Config {
	return Config{
		HeaderTimeout: 15 * time.Second,
		UserAgent:     "Mozilla/5.0",
	}
}

// Relay fetches resolved upstream media and pipes it to client connections.
type Relay struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New creates a Relay. The underlying client has no overall timeout; only the
// header wait is bounded, since media bodies stream for arbitrary durations.
func New(cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.HeaderTimeout,
			},
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Stream fetches the resolved upstream URL and relays the byte stream to w,
// forwarding any inbound Range header verbatim.
//
// A non-nil return means nothing has been written to w yet and the caller
// should render a structured error response. Failures after headers are sent
// are terminal for the connection and handled here: HTTP forbids a further
// status code at that point, so the stream is simply cut and logged.
func (rl *Relay) Stream(w http.ResponseWriter, r *http.Request, res *model.StreamResolution) error {
	ctx := r.Context()
	session := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: build upstream request: %v", model.ErrUpstreamStream, err)
	}
	req.Header.Set("User-Agent", rl.userAgent)
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away before upstream answered; nothing to send.
			metrics.RelayRequestsTotal.WithLabelValues(metrics.RelayClientAborted).Inc()
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", model.ErrUpstreamStream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("%w: upstream status %d", model.ErrUpstreamStream, resp.StatusCode)
	}

	copyAllowedHeaders(w, resp, res)
	w.WriteHeader(resp.StatusCode)

	written, err := io.Copy(newFlushWriter(w), resp.Body)
	metrics.RelayBytesTotal.Add(float64(written))
	if err != nil {
		if isClientAbort(ctx, err) {
			// Expected, non-actionable: the listener stopped or skipped.
			metrics.RelayRequestsTotal.WithLabelValues(metrics.RelayClientAborted).Inc()
			rl.logger.Debug("client aborted stream",
				slog.String("session", session),
				slog.String("video_id", res.VideoID.String()),
				slog.Int64("bytes", written),
			)
		} else {
			metrics.RelayRequestsTotal.WithLabelValues(metrics.RelayUpstreamError).Inc()
			rl.logger.Error("upstream stream failed mid-transfer",
				slog.String("session", session),
				slog.String("video_id", res.VideoID.String()),
				slog.Int64("bytes", written),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	metrics.RelayRequestsTotal.WithLabelValues(metrics.RelayCompleted).Inc()
	rl.logger.Info("stream completed",
		slog.String("session", session),
		slog.String("video_id", res.VideoID.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int64("bytes", written),
	)
	return nil
}

func copyAllowedHeaders(w http.ResponseWriter, resp *http.Response, res *model.StreamResolution) {
	for _, h := range allowedHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		ct := res.MimeType
		if ct == "" {
			ct = "audio/mpeg"
		}
		w.Header().Set("Content-Type", ct)
	}
	if w.Header().Get("Accept-Ranges") == "" {
		w.Header().Set("Accept-Ranges", "bytes")
	}
}

// isClientAbort reports whether a mid-stream copy error was caused by the
// client connection going away rather than by upstream.
func isClientAbort(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

// flushWriter flushes after every chunk so clients start playback without
// waiting for proxy-side buffering.
type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	fw := &flushWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		fw.flusher = f
	}
	return fw
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil && fw.flusher != nil {
		fw.flusher.Flush()
	}
	return n, err
}
