package idea

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"reel-studio/types"
)

type GroqOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Groq calls an OpenAI-compatible chat completions endpoint. It never retries.
type Groq struct {
	opts   GroqOptions
	client *http.Client
}

func NewGroq(opts GroqOptions) *Groq {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.groq.com/openai/v1"
	}
	if opts.Model == "" {
		opts.Model = "llama-3.3-70b-versatile"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Groq{opts: opts, client: client}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) HasKey() bool { return g.opts.APIKey != "" }

type groqRequest struct {
	Model          string             `json:"model"`
	Messages       []groqMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens"`
	ResponseFormat groqResponseFormat `json:"response_format"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ask sends one request and parses the reply. Every failure after the key
// check is wrapped in ErrProviderFailed.
func (g *Groq) ask(ctx context.Context, req promptRequest) (types.Idea, error) {
	if !g.HasKey() {
		return types.Idea{}, fmt.Errorf("%w: GROQ_API_KEY not set", types.ErrMissingKey)
	}
	text, err := g.complete(ctx, req.text)
	if err != nil {
		return types.Idea{}, fmt.Errorf("%w: groq: %v", types.ErrProviderFailed, err)
	}
	out, err := parseIdea(text, req.language, req.topic)
	if err != nil {
		return types.Idea{}, fmt.Errorf("%w: groq: %v", types.ErrProviderFailed, err)
	}
	return out, nil
}

func (g *Groq) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := groqRequest{
		Model: g.opts.Model,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    g.opts.Temperature,
		MaxTokens:      g.opts.MaxTokens,
		ResponseFormat: groqResponseFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, snippet(string(respBytes)))
		}
		return "", fmt.Errorf("parse response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("api error: %s", groqResp.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return groqResp.Choices[0].Message.Content, nil
}
