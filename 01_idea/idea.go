// Package idea turns a persona into a reel Idea through a text-generation
// provider (groq or gemini), or wraps a hand-written one.
package idea

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reel-studio/config"
	"reel-studio/logging"
	"reel-studio/types"
)

// Source is anything that can produce the next Idea
type Source interface {
	Generate(ctx context.Context, persona, tone string) (types.Idea, error)
}

type backend interface {
	Name() string
	HasKey() bool
	ask(ctx context.Context, req promptRequest) (types.Idea, error)
}

type promptRequest struct {
	text     string
	topic    string
	language string
}

// Generator picks a topic and a language, prompts one backend and
// normalizes the reply.
type Generator struct {
	backend   backend
	topics    TopicSource
	languages []string
	rng       func(n int) int
	log       zerolog.Logger
}

func newGenerator(b backend, topics TopicSource, languages []string) *Generator {
	return &Generator{
		backend:   b,
		topics:    topics,
		languages: languages,
		rng:       rand.IntN,
		log:       logging.For("idea"),
	}
}

// Generate never touches the network when the backend's key is missing.
func (g *Generator) Generate(ctx context.Context, persona, tone string) (types.Idea, error) {
	if !g.backend.HasKey() {
		return types.Idea{}, fmt.Errorf("%w: %s is not configured", types.ErrMissingKey, g.backend.Name())
	}
	if len(g.languages) == 0 {
		return types.Idea{}, fmt.Errorf("no languages configured")
	}

	topic, err := g.topics.Topic(ctx)
	if err != nil {
		return types.Idea{}, fmt.Errorf("pick topic: %w", err)
	}
	language := g.languages[g.rng(len(g.languages))]
	g.log.Info().Str("provider", g.backend.Name()).Str("topic", topic).Str("language", language).Msg("generating idea")

	out, err := g.backend.ask(ctx, promptRequest{
		text:     buildPrompt(persona, tone, topic, language),
		topic:    topic,
		language: language,
	})
	if err != nil {
		g.log.Error().Err(err).Str("provider", g.backend.Name()).Msg("idea failed")
		return types.Idea{}, err
	}
	g.log.Info().Str("quote", out.Quote).Str("search", out.VisualSearchTerm).Msg("idea ready")
	return out, nil
}

// Router holds one Generator per provider and forwards to the selected one.
// The studio flips providers at runtime with Select.
type Router struct {
	mu       sync.RWMutex
	current  config.Provider
	backends map[config.Provider]*Generator
}

// NewRouter wires both providers from configuration. httpClient may be nil.
func NewRouter(cfg *config.Config, creds config.Credentials, httpClient *http.Client) (*Router, error) {
	provider, err := config.ParseProvider(cfg.Profile.Provider)
	if err != nil {
		return nil, err
	}
	topics, err := TopicsFromConfig(cfg.Idea)
	if err != nil {
		return nil, err
	}

	groq := NewGroq(GroqOptions{
		APIKey:      creds.GroqKey,
		Model:       cfg.Idea.Groq.Model,
		BaseURL:     cfg.Idea.Groq.BaseURL,
		Temperature: cfg.Idea.Groq.Temperature,
		MaxTokens:   cfg.Idea.Groq.MaxTokens,
		HTTPClient:  clientOr(httpClient, cfg.Idea.Groq.TimeoutSec),
	})
	gemini := NewGemini(GeminiOptions{
		APIKey:  creds.GeminiKey,
		BaseURL: cfg.Idea.Gemini.BaseURL,
		Policy: RetryPolicy{
			Models: cfg.Idea.Gemini.Models,
			Delay:  time.Duration(cfg.Idea.Gemini.RetryDelayMs) * time.Millisecond,
		},
		HTTPClient: clientOr(httpClient, cfg.Idea.Gemini.TimeoutSec),
	})

	return &Router{
		current: provider,
		backends: map[config.Provider]*Generator{
			config.ProviderGroq:   newGenerator(groq, topics, cfg.Idea.Languages),
			config.ProviderGemini: newGenerator(gemini, topics, cfg.Idea.Languages),
		},
	}, nil
}

// TopicsFromConfig returns the static list, or reddit titles backed by it
func TopicsFromConfig(cfg config.IdeaConfig) (TopicSource, error) {
	static := NewStaticTopics(cfg.Topics)
	if len(cfg.Reddit.Subreddits) == 0 {
		return static, nil
	}
	return NewRedditTopics(RedditOptions{
		Subreddits: cfg.Reddit.Subreddits,
		MinScore:   cfg.Reddit.MinScore,
		Limit:      cfg.Reddit.Limit,
		UserAgent:  cfg.Reddit.UserAgent,
		Fallback:   static,
	})
}

func clientOr(c *http.Client, timeoutSec int) *http.Client {
	if c != nil {
		return c
	}
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	return &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
}

func (r *Router) Generate(ctx context.Context, persona, tone string) (types.Idea, error) {
	r.mu.RLock()
	g := r.backends[r.current]
	r.mu.RUnlock()
	return g.Generate(ctx, persona, tone)
}

func (r *Router) Provider() config.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Router) Select(p config.Provider) error {
	if _, ok := r.backends[p]; !ok {
		return fmt.Errorf("unknown provider %q: valid providers are groq, gemini", p)
	}
	r.mu.Lock()
	r.current = p
	r.mu.Unlock()
	return nil
}

// Toggle switches to the other provider and returns it
func (r *Router) Toggle() config.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == config.ProviderGroq {
		r.current = config.ProviderGemini
	} else {
		r.current = config.ProviderGroq
	}
	return r.current
}

// Ready reports whether the selected provider has its key
func (r *Router) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[r.current].backend.HasKey()
}
