package view

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

func DetailMaxTop(linesLen, bodyHeight int) int {
	maxTop := linesLen - bodyHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func RenderDetailLines(lines []string, top, maxLines int) string {
	if len(lines) == 0 {
		return ""
	}
	if top < 0 {
		top = 0
	}
	if top > len(lines)-1 {
		top = len(lines) - 1
	}
	end := len(lines)
	if maxLines > 0 && top+maxLines < end {
		end = top + maxLines
	}
	return strings.Join(lines[top:end], "\n") + "\n"
}

func leftPadLines(lines []string, padding int) []string {
	if padding <= 0 || len(lines) == 0 {
		return lines
	}
	prefix := strings.Repeat(" ", padding)
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			out[i] = line
			continue
		}
		out[i] = prefix + line
	}
	return out
}

func centerLines(lines []string, width int) []string {
	if width <= 0 || len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		visible := visibleLen(line)
		if visible >= width {
			out[i] = line
			continue
		}
		out[i] = strings.Repeat(" ", (width-visible)/2) + line
	}
	return out
}

// WrapText wraps each paragraph of text to width, keeping blank lines.
func WrapText(text string, width int) []string {
	if width < 1 {
		return strings.Split(text, "\n")
	}
	return strings.Split(wordwrap.String(text, width), "\n")
}

// CenterBlock indents every line of a block by the same amount so its widest
// line sits in the middle of width.
func CenterBlock(block string, width int) string {
	lines := strings.Split(block, "\n")
	widest := 0
	for _, line := range lines {
		widest = max(widest, visibleLen(line))
	}
	pad := centerLines([]string{strings.Repeat(" ", widest)}, width)[0]
	return strings.Join(leftPadLines(lines, len(pad)-widest), "\n")
}
