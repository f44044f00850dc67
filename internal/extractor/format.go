package extractor

import "strings"

// rawFormat mirrors one entry of yt-dlp's reported format list.
type rawFormat struct {
	FormatID       string  `json:"format_id"`
	URL            string  `json:"url"`
	Ext            string  `json:"ext"`
	ACodec         string  `json:"acodec"`
	VCodec         string  `json:"vcodec"`
	Protocol       string  `json:"protocol"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// audioCandidate is a usable audio-only format after filtering.
type audioCandidate struct {
	URL           string
	MimeType      string
	Ext           string
	Bitrate       int
	ContentLength int64
	Segmented     bool
}

// containerRank orders container preference; lower is better. Containers not
// listed rank last.
var containerRank = map[string]int{
	"m4a":  0,
	"mp4":  1,
	"webm": 2,
	"mp3":  3,
	"opus": 4,
}

var mimeByExt = map[string]string{
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"webm": "audio/webm",
	"mp3":  "audio/mpeg",
	"opus": "audio/opus",
	"ogg":  "audio/ogg",
}

func (f rawFormat) audioOnly() bool {
	return (f.VCodec == "none" || f.VCodec == "") && f.ACodec != "" && f.ACodec != "none"
}

func (f rawFormat) segmented() bool {
	p := strings.ToLower(f.Protocol)
	return strings.Contains(p, "m3u8") || strings.Contains(p, "hls") || strings.Contains(p, "dash")
}

func (f rawFormat) size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

func (f rawFormat) bitrate() int {
	if f.ABR > 0 {
		return int(f.ABR)
	}
	return int(f.TBR)
}

func toCandidate(f rawFormat) audioCandidate {
	ext := strings.ToLower(f.Ext)
	mime, ok := mimeByExt[ext]
	if !ok {
		mime = "audio/mpeg"
	}
	return audioCandidate{
		URL:           f.URL,
		MimeType:      mime,
		Ext:           ext,
		Bitrate:       f.bitrate(),
		ContentLength: f.size(),
		Segmented:     f.segmented(),
	}
}

// selectAudio applies the deterministic selection policy to a reported format
// list: audio-only candidates, preferring in order non-segmented delivery,
// known content length, container priority, highest bitrate, then smaller
// size for faster start. Returns false when no audio-only candidate exists.
func selectAudio(formats []rawFormat) (audioCandidate, bool) {
	var pool []audioCandidate
	for _, f := range formats {
		if f.URL == "" || !f.audioOnly() {
			continue
		}
		pool = append(pool, toCandidate(f))
	}
	if len(pool) == 0 {
		return audioCandidate{}, false
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if betterCandidate(c, best) {
			best = c
		}
	}
	return best, true
}

// betterCandidate reports whether a should be selected over b.
func betterCandidate(a, b audioCandidate) bool {
	if a.Segmented != b.Segmented {
		return !a.Segmented
	}
	aKnown, bKnown := a.ContentLength > 0, b.ContentLength > 0
	if aKnown != bKnown {
		return aKnown
	}
	ar, br := rankContainer(a.Ext), rankContainer(b.Ext)
	if ar != br {
		return ar < br
	}
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	if aKnown && bKnown && a.ContentLength != b.ContentLength {
		return a.ContentLength < b.ContentLength
	}
	return false
}

func rankContainer(ext string) int {
	if r, ok := containerRank[ext]; ok {
		return r
	}
	return len(containerRank)
}
