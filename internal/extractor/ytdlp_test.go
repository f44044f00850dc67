package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

func newTestClient(run runFunc) *YTDLP {
	y := NewYTDLP(DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	y.run = run
	return y
}

const sampleDump = `{
	"id": "dQw4w9WgXcQ",
	"title": "Never Gonna Give You Up",
	"channel": "Rick Astley",
	"duration": 212,
	"thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hq720.jpg",
	"formats": [
		{"format_id": "140", "url": "https://u/m4a", "ext": "m4a", "acodec": "mp4a.40.2", "vcodec": "none", "protocol": "https", "abr": 129.5, "filesize": 3437753},
		{"format_id": "251", "url": "https://u/webm", "ext": "webm", "acodec": "opus", "vcodec": "none", "protocol": "https", "abr": 136.1, "filesize": 3437753},
		{"format_id": "22", "url": "https://u/mp4", "ext": "mp4", "acodec": "mp4a", "vcodec": "avc1", "protocol": "https", "tbr": 1200}
	]
}`

func TestYTDLP_ResolveStream(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return []byte(sampleDump), nil
	})

	res, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ResolveStream failed: %v", err)
	}
	if res.URL != "https://u/m4a" {
		t.Errorf("URL = %q, want the m4a candidate", res.URL)
	}
	if res.MimeType != "audio/mp4" {
		t.Errorf("MimeType = %q, want audio/mp4", res.MimeType)
	}
	if res.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not stamped")
	}
}

func TestYTDLP_ResolveStream_NoAudioFormat(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return []byte(`{"id": "dQw4w9WgXcQ", "title": "t", "formats": [
			{"format_id": "22", "url": "https://u/mp4", "ext": "mp4", "acodec": "mp4a", "vcodec": "avc1", "protocol": "https"}
		]}`), nil
	})

	_, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, model.ErrNoAudioFormat) {
		t.Fatalf("error = %v, want ErrNoAudioFormat", err)
	}
}

func TestYTDLP_ResolveInfo_Fallbacks(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return []byte(`{"id": "dQw4w9WgXcQ"}`), nil
	})

	info, err := y.ResolveInfo(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ResolveInfo failed: %v", err)
	}
	if info.Title != model.UnknownTitle {
		t.Errorf("Title = %q, want fallback %q", info.Title, model.UnknownTitle)
	}
	if info.ChannelName != model.UnknownChannel {
		t.Errorf("ChannelName = %q, want fallback %q", info.ChannelName, model.UnknownChannel)
	}
	if info.DurationSeconds != 0 {
		t.Errorf("DurationSeconds = %d, want 0", info.DurationSeconds)
	}
}

func TestYTDLP_ResolveInfo_UploaderFallback(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return []byte(`{"id": "dQw4w9WgXcQ", "title": "t", "uploader": "Uploader Name"}`), nil
	})

	info, err := y.ResolveInfo(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ResolveInfo failed: %v", err)
	}
	if info.ChannelName != "Uploader Name" {
		t.Errorf("ChannelName = %q, want uploader fallback", info.ChannelName)
	}
}

func TestYTDLP_ContentUnavailable(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return nil, fmt.Errorf("yt-dlp: exit status 1: ERROR: [youtube] dQw4w9WgXcQ: Video unavailable")
	})

	_, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, model.ErrContentUnavailable) {
		t.Fatalf("error = %v, want ErrContentUnavailable", err)
	}
}

func TestYTDLP_Timeout(t *testing.T) {
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		return nil, context.DeadlineExceeded
	})

	_, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, model.ErrExtractionTimeout) {
		t.Fatalf("error = %v, want ErrExtractionTimeout", err)
	}
}

func TestYTDLP_StrategyFallback(t *testing.T) {
	calls := 0
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("yt-dlp: exit status 1: some transient failure")
		}
		if !contains(args, "--extractor-args") {
			t.Errorf("second attempt missing fallback extractor args: %v", args)
		}
		return []byte(sampleDump), nil
	})

	res, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ResolveStream failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("invocations = %d, want 2 (default then fallback)", calls)
	}
	if res.URL == "" {
		t.Error("fallback strategy result discarded")
	}
}

func TestYTDLP_UnavailableShortCircuitsStrategies(t *testing.T) {
	calls := 0
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		calls++
		return nil, fmt.Errorf("ERROR: Private video")
	})

	_, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, model.ErrContentUnavailable) {
		t.Fatalf("error = %v, want ErrContentUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("invocations = %d, want 1: unavailable content is not retried", calls)
	}
}

func TestYTDLP_Search(t *testing.T) {
	var gotTarget string
	y := newTestClient(func(ctx context.Context, path string, args []string) ([]byte, error) {
		gotTarget = args[len(args)-1]
		return []byte(`{"entries": [
			{"id": "dQw4w9WgXcQ", "title": "Song A", "channel": "Chan A", "duration": 212, "thumbnail": "https://t/a.jpg"},
			{"id": "not-valid", "title": "skip me"},
			{"id": "aaaaaaaaaaa", "title": "", "uploader": "Up B", "duration": 100}
		]}`), nil
	})

	results, err := y.Search(context.Background(), "rick astley", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !strings.HasPrefix(gotTarget, "ytsearch10:") {
		t.Errorf("search target = %q, want ytsearch10: prefix", gotTarget)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (invalid entry skipped)", len(results))
	}
	if results[0].VideoID != "dQw4w9WgXcQ" || results[0].Title != "Song A" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Title != model.UnknownTitle || results[1].ChannelName != "Up B" {
		t.Errorf("second result fallbacks wrong: %+v", results[1])
	}
}

func TestYTDLP_InvokeAppliesTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StreamTimeout = 10 * time.Millisecond
	y := NewYTDLP(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	y.run = func(ctx context.Context, path string, args []string) ([]byte, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected a deadline on the invocation context")
		}
		if time.Until(deadline) > 20*time.Millisecond {
			t.Errorf("deadline too far out: %v", time.Until(deadline))
		}
		return []byte(sampleDump), nil
	}

	if _, err := y.ResolveStream(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("ResolveStream failed: %v", err)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
