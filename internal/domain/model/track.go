package model

import "time"

// Display fallbacks used when the upstream metadata payload omits a field.
const (
	UnknownTitle   = "Unknown Title"
	UnknownChannel = "Unknown Channel"
)

// StreamResolution is the outcome of resolving an identifier into a concrete,
// time-limited upstream media URL. Entries are immutable once created; a
// changed upstream URL is a new resolution, not an update.
type StreamResolution struct {
	VideoID       VideoID   `json:"video_id"`
	URL           string    `json:"url"`
	MimeType      string    `json:"mime_type"`
	Bitrate       int       `json:"bitrate"`
	ContentLength int64     `json:"content_length"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

// TrackInfo is display metadata for a piece of content. Same lifecycle shape
// as StreamResolution but cached with a longer TTL, since titles and channel
// names change far less often than transient media URLs.
type TrackInfo struct {
	VideoID         VideoID   `json:"video_id"`
	Title           string    `json:"title"`
	ChannelName     string    `json:"channel_name"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	DurationSeconds int       `json:"duration_seconds"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// SearchResult is one entry returned by the search collaborator.
type SearchResult struct {
	VideoID         VideoID
	Title           string
	ChannelName     string
	ThumbnailURL    string
	DurationSeconds int
}
