package handler

import (
	"net/http"

	"github.com/hszk-dev/audiorelay/internal/usecase"
)

// CacheClearResponse is the JSON body for POST /api/cache/clear.
type CacheClearResponse struct {
	Cleared ClearedCounts `json:"cleared"`
}

type ClearedCounts struct {
	StreamURLs int `json:"streamUrls"`
	VideoInfo  int `json:"videoInfo"`
}

// CacheStatsResponse is the JSON body for GET /api/cache/stats.
type CacheStatsResponse struct {
	StreamURLs    int `json:"streamUrls"`
	TrackInfo     int `json:"trackInfo"`
	PendingStream int `json:"pendingStream"`
	PendingInfo   int `json:"pendingInfo"`
}

// CacheHandler serves the operational cache endpoints.
type CacheHandler struct {
	resolver usecase.Resolver
}

// NewCacheHandler creates a CacheHandler.
func NewCacheHandler(resolver usecase.Resolver) *CacheHandler {
	return &CacheHandler{resolver: resolver}
}

// Clear handles POST /api/cache/clear.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.resolver.ClearCaches(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, ErrorResponse{Error: "Cache clear failed"})
		return
	}
	JSON(w, http.StatusOK, CacheClearResponse{
		Cleared: ClearedCounts{
			StreamURLs: cleared.StreamEntries,
			VideoInfo:  cleared.InfoEntries,
		},
	})
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.resolver.Stats(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, ErrorResponse{Error: "Cache stats unavailable"})
		return
	}
	JSON(w, http.StatusOK, CacheStatsResponse{
		StreamURLs:    stats.StreamEntries,
		TrackInfo:     stats.InfoEntries,
		PendingStream: stats.PendingStream,
		PendingInfo:   stats.PendingInfo,
	})
}
