package state

import (
	"testing"

	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/reader"
)

func TestClampCursor(t *testing.T) {
	if got := ClampCursor(-1, 3); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := ClampCursor(3, 3); got != 2 {
		t.Fatalf("expected clamp to 2, got %d", got)
	}
	if got := ClampCursor(1, 3); got != 1 {
		t.Fatalf("expected keep 1, got %d", got)
	}
}

func TestPageStep(t *testing.T) {
	if got := PageStep(0, false); got != 10 {
		t.Fatalf("expected default step 10, got %d", got)
	}
	if got := PageStep(12, false); got != 6 {
		t.Fatalf("expected step 6, got %d", got)
	}
	if got := PageStep(12, true); got != 4 {
		t.Fatalf("expected step 4 with status, got %d", got)
	}
}

func TestCenteredWindow(t *testing.T) {
	start, end := CenteredWindow(6, 3, 3)
	if start != 2 || end != 5 {
		t.Fatalf("unexpected window: start=%d end=%d", start, end)
	}
	start, end = CenteredWindow(2, 1, 5)
	if start != 0 || end != 2 {
		t.Fatalf("short lists should show everything: start=%d end=%d", start, end)
	}
}

func TestSplitPanes(t *testing.T) {
	narrow := SplitPanes(80)
	if narrow.SideBySide || narrow.ReadingWidth != 80 {
		t.Fatalf("expected stacked layout, got %+v", narrow)
	}
	wide := SplitPanes(160)
	if !wide.SideBySide || wide.ReadingWidth != 88 || wide.CommentaryWidth != 71 {
		t.Fatalf("unexpected wide layout: %+v", wide)
	}
}

func TestMeasure_ShrinksWithFontSize(t *testing.T) {
	small := Measure(config.MinFontSize, 90)
	normal := Measure(config.DefaultFontSize, 90)
	large := Measure(config.MaxFontSize, 90)
	if !(small > normal && normal > large) {
		t.Fatalf("expected measure to shrink as font grows: %d %d %d", small, normal, large)
	}
	if small != 90 {
		t.Fatalf("smallest font should use the full pane, got %d", small)
	}
	if got := Measure(config.MaxFontSize, 30); got != minMeasure {
		t.Fatalf("expected floor of %d, got %d", minMeasure, got)
	}
}

func TestSelectionRange(t *testing.T) {
	if got := SelectionRange(2, 5); got != (reader.Range{Start: 2, End: 6}) {
		t.Fatalf("unexpected forward range: %+v", got)
	}
	if got := SelectionRange(5, 2); got != (reader.Range{Start: 2, End: 6}) {
		t.Fatalf("unexpected backward range: %+v", got)
	}
	if got := MoveWord(0, -1, 10); got != 0 {
		t.Fatalf("expected clamp at start, got %d", got)
	}
	if got := MoveWord(9, 3, 10); got != 9 {
		t.Fatalf("expected clamp at end, got %d", got)
	}
}
