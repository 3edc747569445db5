package compose

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type probeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Duration string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probe reads the first video stream's size and the clip duration
func probe(ctx context.Context, ffprobe, path string) (Source, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration:format=duration",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Source{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Source{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Source{}, fmt.Errorf("ffprobe %s: no video stream", path)
	}
	s := parsed.Streams[0]
	dur := parseSeconds(s.Duration)
	if dur <= 0 {
		dur = parseSeconds(parsed.Format.Duration)
	}
	return Source{Width: s.Width, Height: s.Height, Duration: dur}, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
