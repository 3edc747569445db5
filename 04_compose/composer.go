// Package compose renders a vertical reel: a background clip looped or
// trimmed to length, cropped to the frame, with a styled quote burned in.
package compose

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	style "reel-studio/03_style"
	"reel-studio/config"
	"reel-studio/logging"
	"reel-studio/progress"
	"reel-studio/types"
)

// Request is one render. Duration 0 draws a random length from the configured range.
type Request struct {
	Background string
	Text       string
	Style      types.Style
	Output     string
	Duration   float64
}

type Options struct {
	Width          int
	Height         int
	FPS            int
	MinDurationSec int
	MaxDurationSec int
	WrapWidth      int
	TextMargin     int
	Preset         string
	CRF            int
	Threads        int
	FontsDir       string
	FFmpegPath     string
	FFprobePath    string
}

func OptionsFromConfig(r config.RenderConfig) Options {
	return Options{
		Width:          r.Width,
		Height:         r.Height,
		FPS:            r.FPS,
		MinDurationSec: r.MinDurationSec,
		MaxDurationSec: r.MaxDurationSec,
		WrapWidth:      r.WrapWidth,
		TextMargin:     r.TextMargin,
		Preset:         r.Preset,
		CRF:            r.CRF,
		Threads:        r.Threads,
		FontsDir:       r.FontsDir,
		FFmpegPath:     r.FFmpegPath,
		FFprobePath:    r.FFprobePath,
	}
}

type Composer struct {
	opts Options
	rng  func(n int) int
	log  zerolog.Logger
}

func New(opts Options) *Composer {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Preset == "" {
		opts.Preset = "medium"
	}
	if opts.FPS <= 0 {
		opts.FPS = 24
	}
	if opts.WrapWidth <= 0 {
		opts.WrapWidth = 22
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 720, 1280
	}
	if opts.MinDurationSec <= 0 {
		opts.MinDurationSec, opts.MaxDurationSec = 7, 10
	}
	return &Composer{opts: opts, rng: rand.IntN, log: logging.For("compose")}
}

// PickDuration draws whole seconds uniformly from [min, max]
func (c *Composer) PickDuration() float64 {
	lo, hi := c.opts.MinDurationSec, c.opts.MaxDurationSec
	if hi < lo {
		hi = lo
	}
	return float64(lo + c.rng(hi-lo+1))
}

// Compose writes the reel to req.Output and returns its path. On failure the
// partial file is removed and the error wraps ErrComposeFailed.
func (c *Composer) Compose(ctx context.Context, req Request, sink progress.Sink) (string, error) {
	out, err := c.compose(ctx, req, progress.OrNop(sink))
	if err != nil {
		c.log.Error().Err(err).Str("background", req.Background).Str("style", req.Style.Name).Msg("compose failed")
		return "", fmt.Errorf("%w: %w", types.ErrComposeFailed, err)
	}
	return out, nil
}

func (c *Composer) compose(ctx context.Context, req Request, sink progress.Sink) (string, error) {
	if req.Output == "" {
		return "", errors.New("no output path")
	}
	if _, err := os.Stat(req.Background); err != nil {
		return "", fmt.Errorf("background: %w", err)
	}

	t := req.Duration
	if t <= 0 {
		t = c.PickDuration()
	}

	src, err := probe(ctx, c.opts.FFprobePath, req.Background)
	if err != nil {
		return "", err
	}
	plan, err := NewPlan(src, c.opts.Width, c.opts.Height, t)
	if err != nil {
		return "", err
	}
	sink.Report(1.0 / 6)
	c.log.Info().Str("plan", plan.String()).Int("src_w", src.Width).Int("src_h", src.Height).Float64("src_dur", src.Duration).Msg("planned")

	outDir := filepath.Dir(req.Output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	layout, err := layoutText(req.Text, req.Style, c.opts.Width, c.opts.Height, c.opts.WrapWidth, c.opts.TextMargin, outDir)
	if err != nil {
		return "", err
	}

	fontFile := style.FontPath(c.opts.FontsDir, req.Style)
	if fontFile == "" {
		c.log.Warn().Str("font", req.Style.Font).Msg("font not found, using ffmpeg default")
	}

	tmp, err := os.CreateTemp(outDir, ".reel-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	filters := append(plan.videoFilters(), layout.drawFilters(req.Style, fontFile)...)
	args := c.encodeArgs(req.Background, plan, strings.Join(filters, ","), tmpPath)
	c.log.Debug().Strs("args", args).Msg("ffmpeg")

	if err := runFFmpeg(ctx, c.opts.FFmpegPath, args, plan.Target, progress.Range(sink, 1.0/6, 1)); err != nil {
		return "", err
	}
	if info, err := os.Stat(tmpPath); err != nil || info.Size() == 0 {
		return "", errors.New("ffmpeg produced no output")
	}
	if err := os.Rename(tmpPath, req.Output); err != nil {
		return "", fmt.Errorf("replace %s: %w", req.Output, err)
	}
	committed = true

	c.log.Info().Str("output", req.Output).Float64("duration", plan.Target).Str("style", req.Style.Name).Msg("reel ready")
	return req.Output, nil
}

func (c *Composer) encodeArgs(input string, plan Plan, filter, output string) []string {
	args := []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error", "-progress", "pipe:1"}
	if plan.Loops > 0 {
		args = append(args, "-stream_loop", strconv.Itoa(plan.Loops))
	}
	args = append(args,
		"-i", input,
		"-t", strconv.FormatFloat(plan.Target, 'f', 3, 64),
		"-vf", filter,
		"-r", strconv.Itoa(c.opts.FPS),
		"-an",
		"-c:v", "libx264",
		"-preset", c.opts.Preset,
	)
	if c.opts.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(c.opts.CRF))
	}
	if c.opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(c.opts.Threads))
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
	return args
}
