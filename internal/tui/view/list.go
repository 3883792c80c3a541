package view

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// RenderContentsLine draws one table-of-contents row with its page label
// right-aligned. current marks the book or page the reader is on.
func RenderContentsLine(left, right string, width int, heading, active, current bool, th tuitheme.Theme) string {
	marker := "  "
	if current {
		marker = "● "
	}
	left = marker + left
	available := width - visibleLen(right) - 1
	if available < 1 {
		available = 1
	}
	left = truncateRunes(left, available)
	gap := width - visibleLen(left) - visibleLen(right)
	if gap < 1 {
		gap = 1
	}
	if heading {
		left = th.Section.Render(left)
	}
	return th.RenderActiveLine(active, left+strings.Repeat(" ", gap)+th.MetaLabel.Render(right))
}

func PageRangeLabel(first, count int) string {
	if count <= 1 {
		return fmt.Sprintf("p. %d", first)
	}
	return fmt.Sprintf("pp. %d–%d", first, first+count-1)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
