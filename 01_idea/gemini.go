package idea

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"reel-studio/logging"
	"reel-studio/types"
)

// RetryPolicy is the ordered model list Gemini walks and the pause between attempts
type RetryPolicy struct {
	Models []string
	Delay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Models: []string{"gemini-2.0-flash", "gemini-1.5-flash-latest", "gemini-1.5-flash", "gemini-pro"},
		Delay:  time.Second,
	}
}

type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Policy     RetryPolicy
	HTTPClient *http.Client
}

type Gemini struct {
	apiKey  string
	baseURL string
	policy  RetryPolicy
	client  *http.Client
	log     zerolog.Logger
}

func NewGemini(opts GeminiOptions) *Gemini {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	policy := opts.Policy
	if len(policy.Models) == 0 {
		policy.Models = DefaultRetryPolicy().Models
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Gemini{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		policy:  policy,
		client:  client,
		log:     logging.For("idea.gemini"),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) HasKey() bool { return g.apiKey != "" }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ask tries each model in order and returns the first parseable idea.
func (g *Gemini) ask(ctx context.Context, req promptRequest) (types.Idea, error) {
	if !g.HasKey() {
		return types.Idea{}, fmt.Errorf("%w: GEMINI_API_KEY not set", types.ErrMissingKey)
	}

	var lastErr error
	for i, model := range g.policy.Models {
		g.log.Debug().Str("model", model).Msg("attempting")
		out, err := g.askModel(ctx, model, req)
		if err == nil {
			g.log.Info().Str("model", model).Msg("idea generated")
			return out, nil
		}
		lastErr = err
		g.log.Warn().Err(err).Str("model", model).Msg("model failed")

		if ctx.Err() != nil {
			break
		}
		if i < len(g.policy.Models)-1 {
			if err := sleepCtx(ctx, g.policy.Delay); err != nil {
				break
			}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.Idea{}, fmt.Errorf("%w: gemini: %w", types.ErrAllModelsFailed, ctxErr)
	}
	return types.Idea{}, fmt.Errorf("%w: try switching to groq: %v", types.ErrAllModelsFailed, lastErr)
}

func (g *Gemini) askModel(ctx context.Context, model string, req promptRequest) (types.Idea, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.text}},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return types.Idea{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(model), &buf)
	if err != nil {
		return types.Idea{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return types.Idea{}, fmt.Errorf("%s: %w", model, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var out geminiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if out.Error != nil {
		return types.Idea{}, fmt.Errorf("%s: %d %s", model, out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return types.Idea{}, fmt.Errorf("%s: status %d", model, resp.StatusCode)
	}
	if decodeErr != nil {
		return types.Idea{}, fmt.Errorf("%s: decode response: %w", model, decodeErr)
	}
	text := extractText(out)
	if text == "" {
		return types.Idea{}, fmt.Errorf("%s: empty candidates", model)
	}
	parsed, err := parseIdea(text, req.language, req.topic)
	if err != nil {
		return types.Idea{}, fmt.Errorf("%s: %w", model, err)
	}
	return parsed, nil
}

func (g *Gemini) endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
