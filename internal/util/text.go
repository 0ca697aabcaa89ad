package util

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"
)

// MonthNames holds the short month labels used as byMonth keys.
var MonthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	slugRe       = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeText collapses runs of whitespace into single spaces and trims.
func NormalizeText(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

// ClampSubtitle normalizes a subtitle and truncates it to 220 characters.
// Limits count runes, not bytes, so multibyte text is never cut mid-rune.
func ClampSubtitle(raw string) string {
	subtitle := NormalizeText(raw)
	if subtitle == "" {
		return ""
	}
	if runes := []rune(subtitle); len(runes) > 220 {
		return string(runes[:217]) + "..."
	}
	return subtitle
}

// ClampMonth coerces a month into 1..12, substituting fallback otherwise.
func ClampMonth(month, fallback int) int {
	if month < 1 || month > 12 {
		return fallback
	}
	return month
}

// StoryKey derives the stable join key for a news story. The same
// (year, month, title) always slugifies identically regardless of casing
// or whitespace variants of the title.
func StoryKey(year, month int, title string) string {
	slug := strings.ToLower(NormalizeText(title))
	slug = slugRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "story"
	}
	return fmt.Sprintf("%d-%02d-%s", year, month, slug)
}

// QuestionKey normalizes question text for duplicate detection.
func QuestionKey(question string) string {
	return strings.ToLower(NormalizeText(question))
}

// HashSeed produces the deterministic quiz seed for a group/week/year tuple.
func HashSeed(input string) string {
	h := fnv.New32a()
	h.Write([]byte(input))
	return fmt.Sprintf("%d", h.Sum32())
}

// WikiSearchURL builds a Wikipedia search link for a free-text query.
// Returns "" for empty queries.
func WikiSearchURL(query string) string {
	normalized := NormalizeText(query)
	if normalized == "" {
		return ""
	}
	return "https://en.wikipedia.org/wiki/Special:Search?search=" + url.QueryEscape(normalized)
}
