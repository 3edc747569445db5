package idea

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vartanbeno/go-reddit/v2/reddit"

	"reel-studio/logging"
)

// TopicSource supplies the subject for the next idea
type TopicSource interface {
	Topic(ctx context.Context) (string, error)
}

type StaticTopics struct {
	topics []string
	rng    func(n int) int
}

func NewStaticTopics(topics []string) *StaticTopics {
	return &StaticTopics{topics: topics, rng: rand.IntN}
}

func (s *StaticTopics) Topic(context.Context) (string, error) {
	if len(s.topics) == 0 {
		return "", fmt.Errorf("no topics configured")
	}
	return s.topics[s.rng(len(s.topics))], nil
}

type RedditOptions struct {
	Subreddits []string
	MinScore   int
	Limit      int
	UserAgent  string
	Fallback   TopicSource
	Client     *reddit.Client
}

// RedditTopics uses hot post titles as topics, falling back when reddit is
// unreachable or nothing qualifies.
type RedditTopics struct {
	client   *reddit.Client
	subs     []string
	minScore int
	limit    int
	fallback TopicSource
	rng      func(n int) int
	log      zerolog.Logger
}

func NewRedditTopics(opts RedditOptions) (*RedditTopics, error) {
	client := opts.Client
	if client == nil {
		ua := opts.UserAgent
		if ua == "" {
			ua = "reel-studio/1.0"
		}
		c, err := reddit.NewReadonlyClient(reddit.WithUserAgent(ua))
		if err != nil {
			return nil, fmt.Errorf("reddit client: %w", err)
		}
		client = c
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 25
	}
	return &RedditTopics{
		client:   client,
		subs:     opts.Subreddits,
		minScore: opts.MinScore,
		limit:    limit,
		fallback: opts.Fallback,
		rng:      rand.IntN,
		log:      logging.For("idea.reddit"),
	}, nil
}

func (r *RedditTopics) Topic(ctx context.Context) (string, error) {
	var titles []string
	for _, sub := range r.subs {
		posts, _, err := r.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: r.limit})
		if err != nil {
			r.log.Warn().Err(err).Str("subreddit", sub).Msg("hot posts failed")
			continue
		}
		titles = append(titles, qualifyingTitles(posts, r.minScore)...)
	}
	if len(titles) == 0 {
		if r.fallback == nil {
			return "", fmt.Errorf("no reddit topics qualified")
		}
		r.log.Info().Msg("no reddit topics qualified, using fallback")
		return r.fallback.Topic(ctx)
	}
	return titles[r.rng(len(titles))], nil
}

func qualifyingTitles(posts []*reddit.Post, minScore int) []string {
	var out []string
	for _, p := range posts {
		if p == nil || p.Stickied || p.NSFW || p.Score < minScore {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		out = append(out, title)
	}
	return out
}
