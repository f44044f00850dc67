package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// rawSearchEntry mirrors one flat-playlist entry from a yt-dlp search dump.
type rawSearchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type rawSearchResult struct {
	Entries []rawSearchEntry `json:"entries"`
}

// Search runs a flat-playlist search and maps the entries. Entries without a
// valid identifier are skipped.
func (y *YTDLP) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, y.config.SearchTimeout)
	defer cancel()

	args := []string{
		"-J", "--flat-playlist", "--no-warnings",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}
	out, err := y.run(ctx, y.config.Path, args)
	if err != nil {
		return nil, classifyRunError(err)
	}

	var raw rawSearchResult
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse search output: %w", err)
	}

	results := make([]model.SearchResult, 0, len(raw.Entries))
	for _, e := range raw.Entries {
		id, err := model.ParseVideoID(e.ID)
		if err != nil {
			continue
		}
		results = append(results, model.SearchResult{
			VideoID:         id,
			Title:           fallback(e.Title, model.UnknownTitle),
			ChannelName:     fallback(fallback(e.Channel, e.Uploader), model.UnknownChannel),
			ThumbnailURL:    entryThumbnail(e),
			DurationSeconds: int(e.Duration),
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func entryThumbnail(e rawSearchEntry) string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	if n := len(e.Thumbnails); n > 0 {
		return e.Thumbnails[n-1].URL
	}
	return ""
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
