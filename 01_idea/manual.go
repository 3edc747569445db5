package idea

import (
	"fmt"
	"strings"

	"reel-studio/types"
)

// Manual builds an Idea from user input, skipping generation.
// Caption and hashtags may be empty.
func Manual(quote, searchTerm, caption, hashtags string) (types.Idea, error) {
	quote = strings.TrimSpace(quote)
	searchTerm = strings.TrimSpace(searchTerm)
	if quote == "" {
		return types.Idea{}, fmt.Errorf("manual idea: quote is required")
	}
	if searchTerm == "" {
		return types.Idea{}, fmt.Errorf("manual idea: search term is required")
	}
	return types.Idea{
		Quote:            quote,
		VisualSearchTerm: searchTerm,
		Language:         types.ManualLanguage,
		Caption:          strings.TrimSpace(caption),
		Hashtags:         strings.TrimSpace(hashtags),
	}, nil
}
