package idea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"reel-studio/types"
)

const systemPrompt = "You are a JSON-only generator."

// buildPrompt embeds persona, tone, topic and language into the reel request
func buildPrompt(persona, tone, topic, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an AI agent with this persona: %q.\n", persona)
	fmt.Fprintf(&sb, "Your tone is: %q.\n\n", tone)
	fmt.Fprintf(&sb, "TASK:\nGenerate 1 short vertical reel idea about: %q.\n", topic)
	fmt.Fprintf(&sb, "The quote MUST be written in %s.\n\n", language)
	sb.WriteString("GUIDELINES:\n")
	if needsDevanagari(language) {
		fmt.Fprintf(&sb, "- %s must use Devanagari script.\n", language)
	}
	sb.WriteString("- Keep the quote short: 10 to 15 words at most.\n")
	sb.WriteString("- The caption is in English and may use Hinglish words.\n")
	sb.WriteString("- visual_search_term is a stock video search query, ALWAYS in English.\n\n")
	sb.WriteString("Respond ONLY with a JSON object of exactly this shape:\n")
	sb.WriteString(`{"quote": "text to display on the video", "visual_search_term": "stock video query", "caption": "post caption", "hashtags": "10 hashtags separated by spaces"}`)
	return sb.String()
}

func needsDevanagari(language string) bool {
	switch strings.ToLower(language) {
	case "hindi", "marathi":
		return true
	}
	return false
}

// flexText accepts a JSON string or an array of strings. Models sometimes
// answer "hashtags" with a list.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*f = flexText(strings.Join(list, " "))
	return nil
}

type ideaJSON struct {
	Quote            flexText `json:"quote"`
	VisualSearchTerm flexText `json:"visual_search_term"`
	Caption          flexText `json:"caption"`
	Hashtags         flexText `json:"hashtags"`
}

// parseIdea decodes a model reply into an Idea tagged with language.
// An empty search term falls back to the topic.
func parseIdea(raw, language, topic string) (types.Idea, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return types.Idea{}, errors.New("empty reply")
	}
	var parsed ideaJSON
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return types.Idea{}, fmt.Errorf("parse idea JSON: %w (raw: %s)", err, snippet(cleaned))
	}
	out := types.Idea{
		Quote:            strings.TrimSpace(string(parsed.Quote)),
		VisualSearchTerm: strings.TrimSpace(string(parsed.VisualSearchTerm)),
		Language:         language,
		Caption:          strings.TrimSpace(string(parsed.Caption)),
		Hashtags:         strings.TrimSpace(string(parsed.Hashtags)),
	}
	if out.Quote == "" {
		return types.Idea{}, fmt.Errorf("reply has no quote (raw: %s)", snippet(cleaned))
	}
	if out.VisualSearchTerm == "" {
		out.VisualSearchTerm = topic
	}
	return out, nil
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// trimCodeFence strips ```json ... ``` wrappers
func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
