package handler

import (
	"log/slog"
	"net/http"

	"github.com/hszk-dev/audiorelay/internal/usecase"
)

// SearchItem is one entry of the GET /api/search response.
type SearchItem struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	ChannelName string `json:"channelName"`
	Duration    int    `json:"duration"`
}

type searchErrorResponse struct {
	Error string `json:"error"`
	Query string `json:"query"`
}

// SearchHandler delegates free-text search to the search collaborator.
type SearchHandler struct {
	svc    usecase.SearchService
	logger *slog.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc usecase.SearchService, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{svc: svc, logger: logger}
}

// Search handles GET /api/search?q=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		JSON(w, http.StatusBadRequest, searchErrorResponse{
			Error: "Missing query parameter q",
			Query: query,
		})
		return
	}

	results, err := h.svc.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		JSON(w, http.StatusInternalServerError, searchErrorResponse{
			Error: "Search failed",
			Query: query,
		})
		return
	}

	items := make([]SearchItem, 0, len(results))
	for _, res := range results {
		items = append(items, SearchItem{
			VideoID:     res.VideoID.String(),
			Title:       res.Title,
			Thumbnail:   res.ThumbnailURL,
			ChannelName: res.ChannelName,
			Duration:    res.DurationSeconds,
		})
	}
	JSON(w, http.StatusOK, items)
}
