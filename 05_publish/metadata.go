package publish

import (
	"strings"
	"time"
	"unicode/utf8"

	"reel-studio/config"
	"reel-studio/types"
)

const (
	titleMaxRunes    = 100
	shortsTag        = "#Shorts"
	maxTags          = 30
	maxTagChars      = 500
	descriptionRunes = 5000
)

// Metadata is everything YouTube needs besides the file itself
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	PublishAt   string // RFC3339 UTC, empty to publish per Privacy
}

// BuildMetadata derives upload metadata from the idea that produced the reel.
// No model call is made: the caption and hashtags were written with the quote.
func BuildMetadata(idea types.Idea, up config.UploadConfig, now time.Time) Metadata {
	m := Metadata{
		Title:       buildTitle(idea.Quote),
		Description: buildDescription(idea),
		Tags:        parseTags(idea.Hashtags),
		CategoryID:  up.CategoryID,
		Privacy:     up.Privacy,
	}
	if m.Privacy == "" {
		m.Privacy = "private"
	}
	if up.ScheduleNext {
		// scheduled videos must be private until publishAt
		m.Privacy = "private"
		m.PublishAt = nextUploadTime(now)
	}
	return m
}

func buildTitle(quote string) string {
	quote = strings.Join(strings.Fields(quote), " ")
	limit := titleMaxRunes - utf8.RuneCountInString(shortsTag) - 1
	return truncate(quote, limit) + " " + shortsTag
}

func buildDescription(idea types.Idea) string {
	var sb strings.Builder
	if c := strings.TrimSpace(idea.Caption); c != "" {
		sb.WriteString(c)
		sb.WriteString("\n\n")
	}
	tags := strings.TrimSpace(idea.Hashtags)
	if !strings.Contains(strings.ToLower(tags), strings.ToLower(shortsTag)) {
		tags = strings.TrimSpace(tags + " " + shortsTag)
	}
	sb.WriteString(tags)
	return truncate(sb.String(), descriptionRunes)
}

// parseTags turns "#rain #night" into ["rain", "night"], deduplicated, within
// YouTube's tag count and total length limits.
func parseTags(hashtags string) []string {
	seen := make(map[string]bool)
	var tags []string
	total := 0
	for _, f := range strings.Fields(hashtags) {
		tag := strings.Trim(f, "#,.;")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		n := utf8.RuneCountInString(tag)
		if len(tags) == maxTags || total+n > maxTagChars {
			break
		}
		seen[key] = true
		tags = append(tags, tag)
		total += n
	}
	if !seen["shorts"] && len(tags) < maxTags {
		tags = append(tags, "Shorts")
	}
	return tags
}

// nextUploadTime returns the next Tuesday or Friday at 2PM New York time, in UTC
func nextUploadTime(now time.Time) string {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	local := now.In(loc)
	for i := 1; i <= 7; i++ {
		candidate := local.AddDate(0, 0, i)
		wd := candidate.Weekday()
		if wd == time.Tuesday || wd == time.Friday {
			upload := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 14, 0, 0, 0, loc)
			return upload.UTC().Format(time.RFC3339)
		}
	}
	return now.UTC().Add(48 * time.Hour).Format(time.RFC3339)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
