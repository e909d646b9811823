package generator

import "strings"

// spamIndicators is a small denylist of phrases that get a message
// rejected. Matching is lowercase substring.
var spamIndicators = []string{
	"click here",
	"free money",
	"guaranteed",
	"act now",
}

// TruncateText shortens text to at most maxLength characters. It cuts
// at the last whitespace boundary before the limit when that boundary
// keeps at least 80% of the allowed length; otherwise it hard-cuts at
// the character limit. An ellipsis marker is appended whenever
// truncation occurred.
func TruncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	truncated := runes[:maxLength-3]
	lastSpace := -1
	for i, r := range truncated {
		if r == ' ' {
			lastSpace = i
		}
	}

	// Only use the word boundary if it's not too far back
	if lastSpace > int(float64(maxLength)*0.8) {
		truncated = truncated[:lastSpace]
	}

	return string(truncated) + "..."
}

// SanitizeText normalizes text for safe posting: line breaks and tabs
// become spaces, smart punctuation becomes its ASCII equivalent, and
// runs of whitespace collapse to a single space.
func SanitizeText(text string) string {
	replacements := []struct{ old, new string }{
		{"\n", " "},
		{"\r", " "},
		{"\t", " "},
		{"“", `"`},
		{"”", `"`},
		{"‘", "'"},
		{"’", "'"},
		{"–", "-"},
		{"—", "-"},
	}

	sanitized := text
	for _, r := range replacements {
		sanitized = strings.ReplaceAll(sanitized, r.old, r.new)
	}

	for strings.Contains(sanitized, "  ") {
		sanitized = strings.ReplaceAll(sanitized, "  ", " ")
	}

	return strings.TrimSpace(sanitized)
}

// ValidMessage reports whether a message may be posted: non-empty
// after trimming, within the length limit, and free of denylisted
// phrases.
func ValidMessage(text string, maxLength int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if len([]rune(text)) > maxLength {
		return false
	}

	lower := strings.ToLower(text)
	for _, indicator := range spamIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}

	return true
}
