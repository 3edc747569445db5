package compose

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"reel-studio/progress"
)

const stderrTail = 4096

// runFFmpeg runs ffmpeg with -progress pipe:1 and turns out_time_us into a
// 0..1 fraction of total seconds.
func runFFmpeg(ctx context.Context, bin string, args []string, total float64, sink progress.Sink) error {
	sink = progress.OrNop(sink)
	cmd := exec.CommandContext(ctx, bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			if f, ok := parseProgressLine(scanner.Text(), total); ok {
				sink.Report(f)
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			appendTail(&errBuf, scanner.Text())
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(errBuf.String()))
	}
	sink.Report(1)
	return nil
}

// parseProgressLine handles out_time_us=N and progress=end
func parseProgressLine(line string, total float64) (float64, bool) {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys
		us, err := strconv.ParseInt(val, 10, 64)
		if err != nil || us < 0 || total <= 0 {
			return 0, false
		}
		return progress.Clamp(float64(us) / 1e6 / total), true
	case "progress":
		if val == "end" {
			return 1, true
		}
	}
	return 0, false
}

func appendTail(b *strings.Builder, line string) {
	if line == "" {
		return
	}
	b.WriteString(line)
	b.WriteByte('\n')
	if b.Len() > stderrTail {
		s := b.String()
		b.Reset()
		b.WriteString(s[len(s)-stderrTail/2:])
	}
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
