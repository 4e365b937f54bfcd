package adapter

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// snippetLength is how much of a listing description is kept.
const snippetLength = 200

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	nonSlugRegex = regexp.MustCompile(`[^A-Za-z0-9 ]`)
)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles double-encoding; no-op on
// already-real HTML), replaces tags with spaces, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	unescaped = strings.ReplaceAll(unescaped, `\u002B`, "+")
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// truncate cuts s to at most n runes, appending "..." when it was cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:n]), isSpace) + "..."
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// slugify turns a job title into the hyphenated path segment careers sites use.
func slugify(title string) string {
	cleaned := nonSlugRegex.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(cleaned), "-")
}
