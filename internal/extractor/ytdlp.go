package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/metrics"
)

// watchURLPrefix builds the canonical watch URL handed to yt-dlp.
const watchURLPrefix = "https://www.youtube.com/watch?v="

// rawInfo mirrors the subset of yt-dlp's -J output the client consumes.
type rawInfo struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Uploader  string      `json:"uploader"`
	Channel   string      `json:"channel"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	Formats   []rawFormat `json:"formats"`
}

// strategy is one way of invoking yt-dlp. Strategies are tried in order until
// one succeeds; each attempt is independently timed and logged.
type strategy struct {
	name      string
	extraArgs []string
}

var resolveStrategies = []strategy{
	{name: "default"},
	{name: "android_client", extraArgs: []string{"--extractor-args", "youtube:player_client=android"}},
}

// runFunc executes the extraction binary and returns stdout. It exists so
// tests can substitute the subprocess.
type runFunc func(ctx context.Context, path string, args []string) ([]byte, error)

// YTDLP invokes the yt-dlp binary as a subprocess.
type YTDLP struct {
	config Config
	logger *slog.Logger
	run    runFunc
}

var _ Client = (*YTDLP)(nil)

// NewYTDLP creates a yt-dlp-backed extraction client.
func NewYTDLP(cfg Config, logger *slog.Logger) *YTDLP {
	if cfg.Path == "" {
		cfg.Path = "yt-dlp"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YTDLP{
		config: cfg,
		logger: logger,
		run:    runCommand,
	}
}

// runCommand executes the binary, forcibly terminating it when ctx expires.
func runCommand(ctx context.Context, path string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ResolveStream resolves an identifier into the best audio-only media URL.
func (y *YTDLP) ResolveStream(ctx context.Context, id model.VideoID) (*model.StreamResolution, error) {
	info, err := y.fetchInfo(ctx, id, y.config.StreamTimeout)
	if err != nil {
		return nil, err
	}

	best, ok := selectAudio(info.Formats)
	if !ok {
		return nil, model.ErrNoAudioFormat
	}

	return &model.StreamResolution{
		VideoID:       id,
		URL:           best.URL,
		MimeType:      best.MimeType,
		Bitrate:       best.Bitrate,
		ContentLength: best.ContentLength,
		ResolvedAt:    time.Now(),
	}, nil
}

// ResolveInfo resolves display metadata. Missing fields fall back to literal
// defaults rather than errors.
func (y *YTDLP) ResolveInfo(ctx context.Context, id model.VideoID) (*model.TrackInfo, error) {
	info, err := y.fetchInfo(ctx, id, y.config.InfoTimeout)
	if err != nil {
		return nil, err
	}
	return infoToTrack(id, info), nil
}

func infoToTrack(id model.VideoID, info *rawInfo) *model.TrackInfo {
	title := info.Title
	if title == "" {
		title = model.UnknownTitle
	}
	channel := info.Channel
	if channel == "" {
		channel = info.Uploader
	}
	if channel == "" {
		channel = model.UnknownChannel
	}
	return &model.TrackInfo{
		VideoID:         id,
		Title:           title,
		ChannelName:     channel,
		ThumbnailURL:    info.Thumbnail,
		DurationSeconds: int(info.Duration),
		ResolvedAt:      time.Now(),
	}
}

// fetchInfo runs the strategy chain until one invocation yields parseable
// output. Non-retryable outcomes (unavailable content) short-circuit.
func (y *YTDLP) fetchInfo(ctx context.Context, id model.VideoID, timeout time.Duration) (*rawInfo, error) {
	args := []string{"-J", "--no-warnings", "--skip-download", watchURLPrefix + id.String()}

	var lastErr error
	for _, s := range resolveStrategies {
		start := time.Now()
		info, err := y.invoke(ctx, timeout, append(s.extraArgs, args...))
		metrics.ObserveExtraction(s.name, err, time.Since(start))
		if err == nil {
			return info, nil
		}

		y.logger.Warn("extraction attempt failed",
			slog.String("video_id", id.String()),
			slog.String("strategy", s.name),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		lastErr = err

		if errors.Is(err, model.ErrContentUnavailable) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (y *YTDLP) invoke(ctx context.Context, timeout time.Duration, args []string) (*rawInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := y.run(ctx, y.config.Path, args)
	if err != nil {
		return nil, classifyRunError(err)
	}

	var info rawInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return &info, nil
}

// classifyRunError maps subprocess failures onto the domain error taxonomy.
func classifyRunError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrExtractionTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"video unavailable",
		"private video",
		"not available",
		"has been removed",
		"members-only",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", model.ErrContentUnavailable, firstLine(err.Error()))
		}
	}
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
