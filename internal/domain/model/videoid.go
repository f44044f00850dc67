package model

import (
	"net/url"
	"regexp"
	"strings"
)

// videoIDPattern matches the fixed-length identifier used by the upstream
// platform: exactly 11 characters of letters, digits, underscore or hyphen.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID identifies a single piece of content on the upstream platform.
// A VideoID is only obtained through ParseVideoID and is immutable.
type VideoID string

func (id VideoID) String() string {
	return string(id)
}

// ParseVideoID extracts a VideoID from raw client input. The input may be a
// bare 11-character identifier or a full watch/embed/short URL. Returns
// ErrInvalidVideoID when no valid identifier can be derived.
func ParseVideoID(raw string) (VideoID, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return VideoID(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideoID
	}

	if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
		return VideoID(v), nil
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return "", ErrInvalidVideoID
	}
	// A /watch path carries the identifier in the query string, never in the
	// path, so a path-based candidate would be the literal word "watch".
	if segments[0] == "watch" {
		return "", ErrInvalidVideoID
	}
	if last := segments[len(segments)-1]; videoIDPattern.MatchString(last) {
		return VideoID(last), nil
	}

	return "", ErrInvalidVideoID
}
