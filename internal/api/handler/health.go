package handler

import (
	"log/slog"
	"net/http"

	"github.com/hszk-dev/audiorelay/internal/usecase"
)

// HealthResponse reports liveness and cache occupancy.
type HealthResponse struct {
	Status string      `json:"status"`
	Caches CacheCounts `json:"caches"`
}

type CacheCounts struct {
	StreamURLs int `json:"streamUrls"`
	TrackInfo  int `json:"trackInfo"`
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	resolver usecase.Resolver
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(resolver usecase.Resolver) *HealthHandler {
	return &HealthHandler{resolver: resolver}
}

// Health handles GET /api/health. A cache stats failure degrades the counts
// but never the liveness signal.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.resolver.Stats(r.Context())
	if err != nil {
		slog.Warn("cache stats unavailable", slog.String("error", err.Error()))
	}
	JSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Caches: CacheCounts{
			StreamURLs: stats.StreamEntries,
			TrackInfo:  stats.InfoEntries,
		},
	})
}
