// Package publish uploads a finished reel to YouTube as a Short.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"reel-studio/config"
	"reel-studio/logging"
	"reel-studio/progress"
	"reel-studio/types"
)

// insertFunc performs the videos.insert call. onProgress receives bytes sent.
type insertFunc func(ctx context.Context, video *youtube.Video, media io.Reader, onProgress func(sent int64)) (*youtube.Video, error)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	up     config.UploadConfig
	creds  config.Credentials
	now    func() time.Time
	insert insertFunc
	log    zerolog.Logger
}

func New(up config.UploadConfig, creds config.Credentials) *Uploader {
	u := &Uploader{up: up, creds: creds, now: time.Now, log: logging.For("publish")}
	u.insert = u.insertVideo
	return u
}

// Ready reports whether all three OAuth secrets are present
func (u *Uploader) Ready() bool {
	return u.creds.HasYouTube()
}

// Publish uploads videoPath with metadata derived from idea
func (u *Uploader) Publish(ctx context.Context, videoPath string, idea types.Idea, sink progress.Sink) (types.PublishResult, error) {
	sink = progress.OrNop(sink)
	if !u.Ready() {
		return types.PublishResult{}, fmt.Errorf("%w: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required", types.ErrMissingKey)
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return types.PublishResult{}, fmt.Errorf("%w: open video: %w", types.ErrPublishFailed, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return types.PublishResult{}, fmt.Errorf("%w: stat video: %w", types.ErrPublishFailed, err)
	}
	size := fi.Size()

	meta := BuildMetadata(idea, u.up, u.now())
	video := u.video(meta)
	u.log.Info().Str("title", meta.Title).Str("privacy", meta.Privacy).Str("publish_at", meta.PublishAt).
		Float64("size_mb", float64(size)/1024/1024).Msg("uploading")

	uploaded, err := u.insert(ctx, video, f, func(sent int64) {
		if size > 0 {
			sink.Report(float64(sent) / float64(size))
		}
	})
	if err != nil {
		u.log.Error().Err(err).Msg("upload failed")
		return types.PublishResult{}, fmt.Errorf("%w: youtube upload: %w", types.ErrPublishFailed, err)
	}
	sink.Report(1)

	res := types.PublishResult{
		VideoID:    uploaded.Id,
		VideoURL:   "https://www.youtube.com/shorts/" + uploaded.Id,
		Title:      meta.Title,
		UploadedAt: u.now().UTC().Format(time.RFC3339),
	}
	u.log.Info().Str("video_id", res.VideoID).Str("url", res.VideoURL).Msg("uploaded")
	return res, nil
}

func (u *Uploader) video(meta Metadata) *youtube.Video {
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      u.up.DefaultLanguage,
			DefaultAudioLanguage: u.up.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Privacy,
			PublishAt:               meta.PublishAt,
			SelfDeclaredMadeForKids: u.up.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

func (u *Uploader) insertVideo(ctx context.Context, video *youtube.Video, media io.Reader, onProgress func(int64)) (*youtube.Video, error) {
	svc, err := youtube.NewService(ctx, option.WithTokenSource(u.tokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.up.NotifySubscribers).
		Media(media).
		ProgressUpdater(func(current, _ int64) { onProgress(current) }).
		Context(ctx)
	return call.Do()
}

// tokenSource refreshes an access token from the stored refresh token
func (u *Uploader) tokenSource(ctx context.Context) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     u.creds.YouTubeClientID,
		ClientSecret: u.creds.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.creds.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.TokenSource(ctx, token)
}
