package utils

import (
	"regexp"
	"sort"
	"strings"
)

// Common stop words skipped during keyword extraction
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "will": true, "with": true,
	"this": true, "but": true, "they": true, "have": true, "had": true,
	"were": true, "been": true, "their": true, "she": true, "which": true, "do": true,
	"or": true, "if": true, "not": true, "what": true, "there": true, "can": true,
	"out": true, "up": true, "one": true, "about": true, "more": true, "so": true,
	"said": true, "when": true, "some": true, "into": true, "them": true, "then": true,
	"two": true, "how": true, "her": true, "than": true, "first": true, "way": true,
	"even": true, "back": true, "any": true, "over": true, "where": true, "just": true,
	"your": true, "you": true, "our": true, "we": true,
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// ExtractKeywords returns the most frequent non-stop-word terms in text,
// ordered by descending frequency with alphabetical tie-break.
func ExtractKeywords(text string, limit int) []string {
	wordCount := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if len(word) > 2 && !stopWords[word] {
			wordCount[word]++
		}
	}

	type kv struct {
		word  string
		count int
	}
	sorted := make([]kv, 0, len(wordCount))
	for w, c := range wordCount {
		sorted = append(sorted, kv{w, c})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count == sorted[j].count {
			return sorted[i].word < sorted[j].word
		}
		return sorted[i].count > sorted[j].count
	})

	keywords := make([]string, 0, limit)
	for i := 0; i < limit && i < len(sorted); i++ {
		keywords = append(keywords, sorted[i].word)
	}
	return keywords
}

// TruncateRunes truncates text to at most max runes, backing up to the last
// word boundary when one exists. Length ceilings on titles and descriptions
// are rune counts, not byte counts.
func TruncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	truncated := string(runes[:max])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimRight(truncated, " .,;:-")
}

// NormalizeURL normalizes a URL for identity comparison: trailing slash and
// fragment removed, scheme and host lowercased.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSuffix(rawURL, "/")
	if idx := strings.Index(rawURL, "#"); idx > 0 {
		rawURL = rawURL[:idx]
	}
	if idx := strings.Index(rawURL, "://"); idx > 0 {
		scheme := strings.ToLower(rawURL[:idx+3])
		rest := rawURL[idx+3:]
		if slashIdx := strings.Index(rest, "/"); slashIdx > 0 {
			rawURL = scheme + strings.ToLower(rest[:slashIdx]) + rest[slashIdx:]
		} else {
			rawURL = scheme + strings.ToLower(rest)
		}
	}
	return rawURL
}

// GetDomainFromURL extracts the bare hostname from a URL string
func GetDomainFromURL(rawURL string) string {
	if idx := strings.Index(rawURL, "://"); idx > 0 {
		rawURL = rawURL[idx+3:]
	}
	if idx := strings.Index(rawURL, "/"); idx > 0 {
		rawURL = rawURL[:idx]
	}
	if idx := strings.Index(rawURL, ":"); idx > 0 {
		rawURL = rawURL[:idx]
	}
	return strings.ToLower(rawURL)
}
