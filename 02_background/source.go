// Package background finds a stock clip for a search term and downloads it.
package background

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"reel-studio/config"
	"reel-studio/logging"
	"reel-studio/progress"
	"reel-studio/types"
)

// Request describes one background fetch
type Request struct {
	SearchTerm string
	Dest       string
	// AvoidID is the clip currently in use. It is skipped when other candidates exist.
	AvoidID string
}

type Source struct {
	pexels       *Pexels
	download     *http.Client
	maxPage      int
	fallbackTerm string
	minHeight    int
	rng          func(n int) int
	log          zerolog.Logger
}

type Options struct {
	MaxPage      int
	FallbackTerm string
	MinHeight    int
	// DownloadClient fetches the clip bytes. It has no overall timeout by default
	// so long downloads are bounded by the context instead.
	DownloadClient *http.Client
}

func New(p *Pexels, opts Options) *Source {
	if opts.MaxPage <= 0 {
		opts.MaxPage = 3
	}
	if opts.FallbackTerm == "" {
		opts.FallbackTerm = "nature abstract"
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = 720
	}
	dl := opts.DownloadClient
	if dl == nil {
		dl = &http.Client{}
	}
	return &Source{
		pexels:       p,
		download:     dl,
		maxPage:      opts.MaxPage,
		fallbackTerm: opts.FallbackTerm,
		minHeight:    opts.MinHeight,
		rng:          rand.IntN,
		log:          logging.For("background"),
	}
}

// FromConfig wires the Pexels client and source from configuration
func FromConfig(cfg config.BackgroundConfig, apiKey string) *Source {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	p := NewPexels(PexelsOptions{
		APIKey:          apiKey,
		BaseURL:         cfg.BaseURL,
		Orientation:     cfg.Orientation,
		Size:            cfg.Size,
		PerPage:         cfg.PerPage,
		RequestsPerHour: cfg.RequestsPerHour,
		Burst:           cfg.Burst,
		HTTPClient:      &http.Client{Timeout: timeout},
	})
	return New(p, Options{
		MaxPage:      cfg.MaxPage,
		FallbackTerm: cfg.FallbackTerm,
		MinHeight:    cfg.MinHeight,
	})
}

// Fetch searches for req.SearchTerm on a random page, retries once with the
// fallback term on page 1, then downloads a random candidate over req.Dest.
// Nothing is written when no candidate is found or the download fails.
func (s *Source) Fetch(ctx context.Context, req Request, sink progress.Sink) (types.BackgroundAsset, error) {
	if !s.pexels.HasKey() {
		return types.BackgroundAsset{}, fmt.Errorf("%w: PEXELS_API_KEY not set", types.ErrMissingKey)
	}
	sink = progress.OrNop(sink)

	term := req.SearchTerm
	page := 1 + s.rng(s.maxPage)
	s.log.Info().Str("term", term).Int("page", page).Msg("searching")

	videos, err := s.pexels.Search(ctx, term, page)
	if err != nil {
		return types.BackgroundAsset{}, err
	}
	if len(videos) == 0 {
		s.log.Warn().Str("term", term).Str("fallback", s.fallbackTerm).Msg("no results, trying fallback")
		term, page = s.fallbackTerm, 1
		videos, err = s.pexels.Search(ctx, term, page)
		if err != nil {
			return types.BackgroundAsset{}, err
		}
	}
	if len(videos) == 0 {
		return types.BackgroundAsset{}, fmt.Errorf("%w: %q and fallback %q returned nothing", types.ErrNoBackgroundFound, req.SearchTerm, s.fallbackTerm)
	}

	video, _ := pickVideo(videos, req.AvoidID, s.rng)
	file, ok := pickRendition(video.Files, s.minHeight)
	if !ok {
		return types.BackgroundAsset{}, fmt.Errorf("%w: video %d has no downloadable files", types.ErrNoBackgroundFound, video.ID)
	}

	s.log.Info().Int("video_id", video.ID).Int("height", file.Height).Msg("downloading")
	n, err := download(ctx, s.download, file.Link, req.Dest, sink)
	if err != nil {
		return types.BackgroundAsset{}, fmt.Errorf("background %d: %w", video.ID, err)
	}
	s.log.Info().Int("video_id", video.ID).Int64("bytes", n).Str("path", req.Dest).Msg("background ready")

	return types.BackgroundAsset{
		LocalPath:     req.Dest,
		SourceVideoID: video.IDString(),
		SearchTerm:    term,
		Page:          page,
	}, nil
}
