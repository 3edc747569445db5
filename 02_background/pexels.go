package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"reel-studio/logging"
	"reel-studio/types"
)

type Video struct {
	ID       int         `json:"id"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Duration int         `json:"duration"`
	URL      string      `json:"url"`
	Files    []VideoFile `json:"video_files"`
}

type VideoFile struct {
	ID       int    `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

func (v Video) IDString() string { return strconv.Itoa(v.ID) }

type searchResponse struct {
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	Videos       []Video `json:"videos"`
}

type PexelsOptions struct {
	APIKey      string
	BaseURL     string
	Orientation string
	Size        string
	PerPage     int
	// RequestsPerHour and Burst size the token bucket. Zero disables limiting.
	RequestsPerHour int
	Burst           int
	HTTPClient      *http.Client
}

// Pexels searches the stock video API. Calls pass a rate limiter first and
// then a circuit breaker that opens after repeated failures.
type Pexels struct {
	opts    PexelsOptions
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*searchResponse]
	log     zerolog.Logger
}

func NewPexels(opts PexelsOptions) *Pexels {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.pexels.com"
	}
	if opts.Orientation == "" {
		opts.Orientation = "portrait"
	}
	if opts.Size == "" {
		opts.Size = "medium"
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	log := logging.For("background.pexels")
	p := &Pexels{opts: opts, client: client, log: log}
	if opts.RequestsPerHour > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerHour)/3600.0), burst)
	}
	p.cb = gobreaker.NewCircuitBreaker[*searchResponse](gobreaker.Settings{
		Name:        "pexels-search",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return p
}

func (p *Pexels) HasKey() bool { return p.opts.APIKey != "" }

// Search returns one page of results for query. An empty page is not an error.
func (p *Pexels) Search(ctx context.Context, query string, page int) ([]Video, error) {
	if !p.HasKey() {
		return nil, fmt.Errorf("%w: PEXELS_API_KEY not set", types.ErrMissingKey)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pexels rate limit: %w", err)
		}
	}
	resp, err := p.cb.Execute(func() (*searchResponse, error) {
		return p.search(ctx, query, page)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("pexels unavailable, try again shortly: %w", err)
		}
		return nil, err
	}
	return resp.Videos, nil
}

func (p *Pexels) search(ctx context.Context, query string, page int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", p.opts.Orientation)
	params.Set("size", p.opts.Size)
	params.Set("per_page", strconv.Itoa(p.opts.PerPage))
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.BaseURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.opts.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels search: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse pexels response: %w", err)
	}
	p.log.Debug().Str("query", query).Int("page", page).Int("results", len(out.Videos)).Msg("search done")
	return &out, nil
}
