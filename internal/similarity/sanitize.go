package similarity

import (
	"regexp"
	"strings"
)

// MaxInputRunes is the longest text the upstream embedding model accepts.
const MaxInputRunes = 512

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// Optional country code, then area/exchange/line groups such as
	// 555-123-4567, (555) 123 4567 or +44 20 7946 0958.
	phonePattern      = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{2,4}\)|\d{2,4})[\s.\-]?\d{3,4}[\s.\-]?\d{4}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeResume strips email addresses and phone numbers and collapses
// whitespace before resume text leaves the process.
func SanitizeResume(text string) string {
	text = emailPattern.ReplaceAllString(text, " ")
	text = phonePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Truncate cuts text to at most n runes.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
