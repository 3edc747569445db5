package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Profile    ProfileConfig    `yaml:"profile"`
	Idea       IdeaConfig       `yaml:"idea"`
	Background BackgroundConfig `yaml:"background"`
	Render     RenderConfig     `yaml:"render"`
	Upload     UploadConfig     `yaml:"upload"`
	Paths      PathsConfig      `yaml:"paths"`
	Log        LogConfig        `yaml:"log"`
}

// ProfileConfig is the persona the studio generates for
type ProfileConfig struct {
	Name     string `yaml:"name"`
	Persona  string `yaml:"persona"`
	Tone     string `yaml:"tone"`
	Provider string `yaml:"provider"` // groq | gemini
}

type IdeaConfig struct {
	Topics    []string     `yaml:"topics"`
	Languages []string     `yaml:"languages"`
	Groq      GroqConfig   `yaml:"groq"`
	Gemini    GeminiConfig `yaml:"gemini"`
	Reddit    RedditConfig `yaml:"reddit"`
}

type GroqConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

type GeminiConfig struct {
	Models       []string `yaml:"models"`
	BaseURL      string   `yaml:"base_url"`
	RetryDelayMs int      `yaml:"retry_delay_ms"`
	TimeoutSec   int      `yaml:"timeout_sec"`
}

// RedditConfig switches topic selection to hot post titles when Subreddits is set
type RedditConfig struct {
	Subreddits []string `yaml:"subreddits"`
	MinScore   int      `yaml:"min_score"`
	Limit      int      `yaml:"limit"`
	UserAgent  string   `yaml:"user_agent"`
}

type BackgroundConfig struct {
	BaseURL         string `yaml:"base_url"`
	Orientation     string `yaml:"orientation"`
	Size            string `yaml:"size"`
	PerPage         int    `yaml:"per_page"`
	MaxPage         int    `yaml:"max_page"`
	FallbackTerm    string `yaml:"fallback_term"`
	MinHeight       int    `yaml:"min_height"`
	RequestsPerHour int    `yaml:"requests_per_hour"`
	Burst           int    `yaml:"burst"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

type RenderConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	FPS            int    `yaml:"fps"`
	MinDurationSec int    `yaml:"min_duration_sec"`
	MaxDurationSec int    `yaml:"max_duration_sec"`
	WrapWidth      int    `yaml:"wrap_width"`
	TextMargin     int    `yaml:"text_margin"`
	Preset         string `yaml:"preset"`
	CRF            int    `yaml:"crf"`
	Threads        int    `yaml:"threads"`
	FontsDir       string `yaml:"fonts_dir"`
	FFmpegPath     string `yaml:"ffmpeg_path"`
	FFprobePath    string `yaml:"ffprobe_path"`
}

type UploadConfig struct {
	Privacy           string `yaml:"privacy"`
	CategoryID        string `yaml:"category_id"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	DefaultLanguage   string `yaml:"default_language"`
	// ScheduleNext uploads privately with publishAt set to the next Tuesday or Friday, 2PM New York time
	ScheduleNext bool `yaml:"schedule_next"`
}

type PathsConfig struct {
	Sessions     string `yaml:"sessions"`
	Logs         string `yaml:"logs"`
	KeepSessions bool   `yaml:"keep_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var allowedPresets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
}

// Default returns the built-in configuration. Load overlays config.yaml on top of it.
func Default() *Config {
	return &Config{
		Profile: ProfileConfig{
			Name:     "ThinkingStrom",
			Persona:  "You are ThinkingStrom, a 23 yo Indian Maverick. You are an Atheist who believes Nature is god. You criticize societal double standards and religious politics logically. You speak to the Indian youth.",
			Tone:     "Sarcastic, Logical, Maverick",
			Provider: "groq",
		},
		Idea: IdeaConfig{
			Topics: []string{
				"The dark side of success", "Why nice guys finish last", "The hypocrisy of society",
				"Money vs Happiness", "Modern dating struggles", "The lie of hard work",
				"Loneliness in big cities", "Social media fakeness", "Childhood nostalgia",
				"Betrayal by friends", "The rat race", "Finding God in nature",
				"Why we fear death", "The beauty of pain", "Lost dreams",
			},
			Languages: []string{"English", "Hindi", "Marathi"},
			Groq: GroqConfig{
				Model:       "llama-3.3-70b-versatile",
				BaseURL:     "https://api.groq.com/openai/v1",
				Temperature: 1,
				MaxTokens:   1024,
				TimeoutSec:  60,
			},
			Gemini: GeminiConfig{
				Models: []string{
					"gemini-2.0-flash",
					"gemini-1.5-flash-latest",
					"gemini-1.5-flash",
					"gemini-pro",
				},
				BaseURL:      "https://generativelanguage.googleapis.com/v1beta",
				RetryDelayMs: 1000,
				TimeoutSec:   60,
			},
			Reddit: RedditConfig{
				MinScore:  100,
				Limit:     25,
				UserAgent: "reel-studio/1.0",
			},
		},
		Background: BackgroundConfig{
			BaseURL:         "https://api.pexels.com",
			Orientation:     "portrait",
			Size:            "medium",
			PerPage:         10,
			MaxPage:         3,
			FallbackTerm:    "nature abstract",
			MinHeight:       720,
			RequestsPerHour: 200,
			Burst:           20,
			TimeoutSec:      60,
		},
		Render: RenderConfig{
			Width:          720,
			Height:         1280,
			FPS:            24,
			MinDurationSec: 7,
			MaxDurationSec: 10,
			WrapWidth:      22,
			TextMargin:     90,
			Preset:         "medium",
			CRF:            23,
			Threads:        2,
			FontsDir:       "assets/fonts",
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
		},
		Upload: UploadConfig{
			Privacy:         "private",
			CategoryID:      "22",
			DefaultLanguage: "en",
		},
		Paths: PathsConfig{
			Sessions: "assets/sessions",
			Logs:     "logs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads config.yaml over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the pipeline cannot run without
func (c *Config) Validate() error {
	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.Width%2 != 0 || r.Height%2 != 0 {
		return fmt.Errorf("render size must be even for yuv420p, got %dx%d", r.Width, r.Height)
	}
	if r.FPS <= 0 {
		return fmt.Errorf("render fps must be positive, got %d", r.FPS)
	}
	if r.MinDurationSec <= 0 || r.MaxDurationSec < r.MinDurationSec {
		return fmt.Errorf("render duration range invalid: %d-%d", r.MinDurationSec, r.MaxDurationSec)
	}
	if r.WrapWidth <= 0 {
		return fmt.Errorf("render wrap_width must be positive, got %d", r.WrapWidth)
	}
	if r.TextMargin < 0 || 2*r.TextMargin >= r.Width {
		return fmt.Errorf("render text_margin %d leaves no room in width %d", r.TextMargin, r.Width)
	}
	if _, ok := allowedPresets[r.Preset]; !ok {
		return fmt.Errorf("render preset %q is not an x264 preset", r.Preset)
	}
	if len(c.Idea.Topics) == 0 {
		return fmt.Errorf("idea topics must not be empty")
	}
	if len(c.Idea.Languages) == 0 {
		return fmt.Errorf("idea languages must not be empty")
	}
	if c.Background.PerPage <= 0 || c.Background.MaxPage <= 0 {
		return fmt.Errorf("background per_page and max_page must be positive")
	}
	if _, err := ParseProvider(c.Profile.Provider); err != nil {
		return err
	}
	return nil
}
