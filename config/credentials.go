package config

import (
	"fmt"
	"os"
	"strings"
)

// Provider selects the text-generation backend
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
)

// Providers lists the valid selectors in display order
var Providers = []Provider{ProviderGroq, ProviderGemini}

// ParseProvider accepts the selector names plus the "fast"/"fallback" aliases.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "groq", "fast":
		return ProviderGroq, nil
	case "gemini", "fallback":
		return ProviderGemini, nil
	}
	return "", fmt.Errorf("unknown provider %q: valid providers are groq, gemini", s)
}

// Credentials are read from the environment only; config.yaml never holds secrets.
type Credentials struct {
	GroqKey   string
	GeminiKey string
	PexelsKey string

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		GroqKey:             env("GROQ_API_KEY"),
		GeminiKey:           env("GEMINI_API_KEY"),
		PexelsKey:           env("PEXELS_API_KEY"),
		YouTubeClientID:     env("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: env("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: env("YOUTUBE_REFRESH_TOKEN"),
	}
}

// KeyFor returns the API key for a text provider
func (c Credentials) KeyFor(p Provider) string {
	switch p {
	case ProviderGroq:
		return c.GroqKey
	case ProviderGemini:
		return c.GeminiKey
	}
	return ""
}

func (c Credentials) HasYouTube() bool {
	return c.YouTubeClientID != "" && c.YouTubeClientSecret != "" && c.YouTubeRefreshToken != ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
