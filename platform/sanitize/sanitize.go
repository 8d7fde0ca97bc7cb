// Package sanitize cleans user-provided text before it is stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	codeRegex    = regexp.MustCompile(`[^A-Z0-9._-]+`)
)

// StripHTML removes HTML tags, including tags hidden behind entity encoding.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses runs of whitespace into single spaces. Use it
// for names and other free-text fields.
func Text(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}

// Code normalizes an identifier such as a cost center code: uppercase, with
// anything outside letters, digits, dot, dash and underscore removed.
func Code(s string) string {
	return codeRegex.ReplaceAllString(strings.ToUpper(Text(s)), "")
}
