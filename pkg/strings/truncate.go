package strings

import (
	"strconv"
	"strings"
)

// DefaultCellMaxLen is the widest a free-text table cell gets before it is
// shortened.
const DefaultCellMaxLen = 72

// minLen leaves room for one character plus the ellipsis.
const minLen = 4

// OneLine collapses every run of whitespace, including newlines, into a
// single space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate flattens s onto one line and cuts it to at most maxLen runes,
// ending in "..." when something was dropped. maxLen below 4 is raised to 4.
func Truncate(s string, maxLen int) string {
	if maxLen < minLen {
		maxLen = minLen
	}
	s = OneLine(s)
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncateLines keeps the first maxLines lines of s and reports how many
// were dropped on a final "(+N more)" line.
func TruncateLines(s string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if maxLines < 1 || len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	kept := append(lines[:maxLines:maxLines], "(+"+strconv.Itoa(len(lines)-maxLines)+" more)")
	return strings.Join(kept, "\n")
}
