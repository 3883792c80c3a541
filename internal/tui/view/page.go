package view

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/glabrego/odyssey-reader/internal/reader"
	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
)

type PageInput struct {
	Page    reader.Page
	Total   int
	Measure int
	Margin  int
	// Selected is the captured selection, if any.
	Selected *reader.Range
	// Marking is the range being chosen in select mode; Cursor is its moving end.
	Marking *reader.Range
	Cursor  int
}

// PageLines lays out the page heading and its words wrapped to the measure,
// styling selected and marked words.
func PageLines(in PageInput, th tuitheme.Theme) []string {
	words := strings.Fields(in.Page.Text)
	styled := make([]string, len(words))
	for i, w := range words {
		switch {
		case in.Marking != nil && i == in.Cursor:
			styled[i] = th.Cursor.Render(w)
		case in.Marking != nil && inRange(i, *in.Marking):
			styled[i] = th.Selection.Render(w)
		case in.Marking == nil && in.Selected != nil && inRange(i, *in.Selected):
			styled[i] = th.Selection.Render(w)
		default:
			styled[i] = w
		}
	}

	measure := in.Measure
	if measure < 1 {
		measure = 60
	}
	lines := []string{
		th.Title.Render(in.Page.BookTitle),
		th.MetaLabel.Render(fmt.Sprintf("Page %d of %d", in.Page.Number, in.Total)),
		"",
	}
	body := wordwrap.String(strings.Join(styled, " "), measure)
	lines = append(lines, strings.Split(body, "\n")...)
	return leftPadLines(lines, in.Margin)
}

func inRange(i int, r reader.Range) bool {
	return i >= r.Start && i < r.End
}
