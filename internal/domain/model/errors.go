package model

import "errors"

var (
	// ErrInvalidVideoID is returned when client input cannot be normalized
	// into a valid identifier. Never retried.
	ErrInvalidVideoID = errors.New("invalid video ID")

	// ErrContentUnavailable is returned when upstream reports the content
	// does not exist or is restricted. Not retried.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrExtractionTimeout is returned when the extraction subprocess
	// exceeded its deadline. Safe to retry on a later request.
	ErrExtractionTimeout = errors.New("extraction timed out")

	// ErrNoAudioFormat is returned when extraction succeeded but no usable
	// audio-only candidate was reported.
	ErrNoAudioFormat = errors.New("no audio format available")

	// ErrUpstreamStream is returned when the upstream media fetch fails
	// before any response headers were sent to the client.
	ErrUpstreamStream = errors.New("upstream stream error")
)
