package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/relay"
	"github.com/hszk-dev/audiorelay/internal/usecase"
)

// TrackInfoResponse is the JSON body for GET /api/info/{id}.
type TrackInfoResponse struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	ChannelName string `json:"channelName"`
	Thumbnail   string `json:"thumbnail"`
	Duration    int    `json:"duration"`
}

// TrackHandler serves metadata and stream requests.
type TrackHandler struct {
	resolver   usecase.Resolver
	relay      *relay.Relay
	production bool
	logger     *slog.Logger
}

// NewTrackHandler creates a TrackHandler.
func NewTrackHandler(resolver usecase.Resolver, rl *relay.Relay, production bool, logger *slog.Logger) *TrackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackHandler{
		resolver:   resolver,
		relay:      rl,
		production: production,
		logger:     logger,
	}
}

// Info handles GET /api/info/{id}.
func (h *TrackHandler) Info(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseVideoID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeResolveError(w, chi.URLParam(r, "id"), err)
		return
	}

	info, err := h.resolver.ResolveInfo(r.Context(), id)
	if err != nil {
		h.writeResolveError(w, id.String(), err)
		return
	}

	JSON(w, http.StatusOK, TrackInfoResponse{
		VideoID:     info.VideoID.String(),
		Title:       info.Title,
		ChannelName: info.ChannelName,
		Thumbnail:   info.ThumbnailURL,
		Duration:    info.DurationSeconds,
	})
}

// Stream handles GET /api/stream/{id}: resolves the upstream media URL and
// relays the byte stream with range semantics preserved.
func (h *TrackHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseVideoID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeResolveError(w, chi.URLParam(r, "id"), err)
		return
	}

	res, err := h.resolver.ResolveStream(r.Context(), id)
	if err != nil {
		if isContextDone(r.Context(), err) {
			return
		}
		h.writeResolveError(w, id.String(), err)
		return
	}

	if err := h.relay.Stream(w, r, res); err != nil {
		if isContextDone(r.Context(), err) {
			return
		}
		h.writeResolveError(w, id.String(), err)
	}
}

// StreamHead handles HEAD /api/stream/{id}: a cheap existence probe that
// never contacts upstream but kicks off a background warm so the following
// GET hits the cache.
func (h *TrackHandler) StreamHead(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseVideoID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeResolveError(w, chi.URLParam(r, "id"), err)
		return
	}

	h.resolver.WarmStream(id)

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)
}

func (h *TrackHandler) writeResolveError(w http.ResponseWriter, id string, err error) {
	resp := ErrorResponse{VideoID: id}
	if !h.production {
		resp.Detail = err.Error()
	}

	var status int
	switch {
	case errors.Is(err, model.ErrInvalidVideoID):
		status = http.StatusBadRequest
		resp.Error = "Invalid video ID"
		resp.Suggestion = "Provide an 11-character video ID or a full watch URL"
	case errors.Is(err, model.ErrContentUnavailable):
		status = http.StatusNotFound
		resp.Error = "Content unavailable"
		resp.Suggestion = "The video may be private, removed, or region-locked"
	case errors.Is(err, model.ErrExtractionTimeout):
		status = http.StatusGatewayTimeout
		resp.Error = "Resolution timed out"
		resp.Suggestion = "Try again in a few seconds"
	case errors.Is(err, model.ErrNoAudioFormat):
		status = http.StatusInternalServerError
		resp.Error = "No audio format available"
		resp.Suggestion = "Try a different video"
	case errors.Is(err, model.ErrUpstreamStream):
		status = http.StatusBadGateway
		resp.Error = "Upstream fetch failed"
		resp.Suggestion = "Retry the request; the media URL may have expired"
	default:
		status = http.StatusInternalServerError
		resp.Error = "An unexpected error occurred"
	}
	Error(w, status, resp)
}

// isContextDone reports whether err reflects the inbound request being
// cancelled; there is no one left to answer.
func isContextDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
