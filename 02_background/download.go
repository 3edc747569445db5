package background

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"reel-studio/progress"
)

// progressWriter reports written/total after every chunk
type progressWriter struct {
	total   int64
	written int64
	sink    progress.Sink
}

func (w *progressWriter) Write(b []byte) (int, error) {
	w.written += int64(len(b))
	if w.total > 0 {
		w.sink.Report(float64(w.written) / float64(w.total))
	}
	return len(b), nil
}

// download streams link into a temp file beside dest and renames it over
// dest only after the body is fully written.
func download(ctx context.Context, client *http.Client, link, dest string, sink progress.Sink) (int64, error) {
	sink = progress.OrNop(sink)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; reel-studio/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".bg-*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	pw := &progressWriter{total: resp.ContentLength, sink: sink}
	n, err := io.Copy(io.MultiWriter(tmp, pw), resp.Body)
	if err != nil {
		return 0, fmt.Errorf("download body: %w", err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return 0, fmt.Errorf("download truncated: got %d of %d bytes", n, resp.ContentLength)
	}
	if n == 0 {
		return 0, fmt.Errorf("download: empty body")
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("replace %s: %w", dest, err)
	}
	committed = true
	sink.Report(1)
	return n, nil
}
