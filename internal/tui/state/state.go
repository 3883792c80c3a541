package state

import (
	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/reader"
)

const (
	minMeasure = 28
	// Terminals narrower than this stack the panes instead of placing them side by side.
	sideBySideWidth = 100
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// Layout is the split of the terminal between the reading column and the
// commentary pane.
type Layout struct {
	SideBySide      bool
	ReadingWidth    int
	CommentaryWidth int
}

func SplitPanes(width int) Layout {
	if width <= 0 {
		width = 100
	}
	if width < sideBySideWidth {
		return Layout{ReadingWidth: width, CommentaryWidth: width}
	}
	reading := width * 55 / 100
	return Layout{SideBySide: true, ReadingWidth: reading, CommentaryWidth: width - reading - 1}
}

// Measure maps the font size onto a line length within the reading pane:
// larger type means fewer columns, as it would on a page.
func Measure(fontSize, paneWidth int) int {
	if fontSize <= 0 {
		fontSize = config.DefaultFontSize
	}
	measure := paneWidth * config.MinFontSize / fontSize
	if measure < minMeasure {
		measure = minMeasure
	}
	if measure > paneWidth {
		measure = paneWidth
	}
	return measure
}

// SelectionRange converts an anchor and a cursor word index into the
// half-open range they cover, whichever order they are in.
func SelectionRange(anchor, cursor int) reader.Range {
	if cursor < anchor {
		anchor, cursor = cursor, anchor
	}
	return reader.Range{Start: anchor, End: cursor + 1}
}

// MoveWord shifts a word index by delta, staying inside [0, total).
func MoveWord(index, delta, total int) int {
	return ClampCursor(index+delta, total)
}
