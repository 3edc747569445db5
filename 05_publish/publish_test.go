package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"google.golang.org/api/youtube/v3"

	"reel-studio/config"
	"reel-studio/progress"
	"reel-studio/types"
)

var idea = types.Idea{
	Quote:            "Time heals nothing, you just get used to the ache.",
	VisualSearchTerm: "rain window night",
	Language:         "English",
	Caption:          "For the nights that feel longer than they should.",
	Hashtags:         "#healing #quotes #rain #Quotes",
}

var creds = config.Credentials{
	YouTubeClientID:     "id",
	YouTubeClientSecret: "secret",
	YouTubeRefreshToken: "refresh",
}

func writeVideo(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "final_reel.mp4")
	if err := os.WriteFile(p, []byte(strings.Repeat("x", 1000)), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBuildMetadata(t *testing.T) {
	up := config.Default().Upload
	m := BuildMetadata(idea, up, time.Now())

	if m.Title != idea.Quote+" #Shorts" {
		t.Fatalf("title = %q", m.Title)
	}
	if !strings.HasPrefix(m.Description, idea.Caption) || !strings.Contains(m.Description, "#Shorts") {
		t.Fatalf("description = %q", m.Description)
	}
	want := []string{"healing", "quotes", "rain", "Shorts"}
	if strings.Join(m.Tags, ",") != strings.Join(want, ",") {
		t.Fatalf("tags = %v, want %v", m.Tags, want)
	}
	if m.Privacy != up.Privacy || m.PublishAt != "" {
		t.Fatalf("privacy %q publishAt %q", m.Privacy, m.PublishAt)
	}
}

func TestTitleIsTruncated(t *testing.T) {
	long := types.Idea{Quote: strings.Repeat("word ", 40)}
	title := buildTitle(long.Quote)
	if n := utf8.RuneCountInString(title); n > titleMaxRunes {
		t.Fatalf("title has %d runes", n)
	}
	if !strings.HasSuffix(title, "... #Shorts") {
		t.Fatalf("title = %q", title)
	}
}

func TestScheduleNextForcesPrivate(t *testing.T) {
	up := config.Default().Upload
	up.Privacy = "public"
	up.ScheduleNext = true

	// Wednesday 2026-10-14 10:00 UTC; next slot is Friday 2PM New York
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	m := BuildMetadata(idea, up, now)
	if m.Privacy != "private" {
		t.Fatalf("privacy = %q", m.Privacy)
	}
	at, err := time.Parse(time.RFC3339, m.PublishAt)
	if err != nil {
		t.Fatalf("publishAt %q: %v", m.PublishAt, err)
	}
	if !at.After(now) || at.Sub(now) > 7*24*time.Hour {
		t.Fatalf("publishAt %v not within the next week", at)
	}
	if wd := at.Add(-5 * time.Hour).Weekday(); wd != time.Friday && wd != time.Tuesday {
		t.Fatalf("publishAt lands on %v", wd)
	}
}

func TestPublishMissingCredentials(t *testing.T) {
	u := New(config.Default().Upload, config.Credentials{YouTubeClientID: "id"})
	called := false
	u.insert = func(context.Context, *youtube.Video, io.Reader, func(int64)) (*youtube.Video, error) {
		called = true
		return nil, nil
	}
	_, err := u.Publish(context.Background(), writeVideo(t), idea, nil)
	if !errors.Is(err, types.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if called {
		t.Fatal("no upload should be attempted without credentials")
	}
}

func TestPublishUploadsFileWithMetadata(t *testing.T) {
	u := New(config.Default().Upload, creds)
	u.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }

	var got *youtube.Video
	var body []byte
	u.insert = func(_ context.Context, v *youtube.Video, media io.Reader, onProgress func(int64)) (*youtube.Video, error) {
		got = v
		b, err := io.ReadAll(media)
		if err != nil {
			return nil, err
		}
		body = b
		onProgress(int64(len(b)) / 2)
		return &youtube.Video{Id: "abc123"}, nil
	}

	var reports []float64
	res, err := u.Publish(context.Background(), writeVideo(t), idea, progress.Func(func(f float64) { reports = append(reports, f) }))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.VideoID != "abc123" || !strings.HasSuffix(res.VideoURL, "/abc123") {
		t.Fatalf("result = %+v", res)
	}
	if res.UploadedAt != "2026-10-16T12:00:00Z" {
		t.Fatalf("uploaded_at = %q", res.UploadedAt)
	}
	if len(body) != 1000 {
		t.Fatalf("uploaded %d bytes", len(body))
	}
	if got.Snippet.Title != res.Title || got.Snippet.CategoryId != "22" || got.Status.PrivacyStatus != "private" {
		t.Fatalf("video = %+v %+v", got.Snippet, got.Status)
	}
	if len(reports) != 2 || reports[0] != 0.5 || reports[1] != 1 {
		t.Fatalf("progress = %v", reports)
	}
}

func TestPublishWrapsUploadFailure(t *testing.T) {
	u := New(config.Default().Upload, creds)
	u.insert = func(context.Context, *youtube.Video, io.Reader, func(int64)) (*youtube.Video, error) {
		return nil, errors.New("quotaExceeded")
	}
	_, err := u.Publish(context.Background(), writeVideo(t), idea, nil)
	if !errors.Is(err, types.ErrPublishFailed) || !strings.Contains(err.Error(), "quotaExceeded") {
		t.Fatalf("got %v", err)
	}
}
