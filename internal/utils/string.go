package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to at most max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// SingleLine collapses all whitespace runs into single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
