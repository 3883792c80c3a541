package view

import (
	"strings"

	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
	tuitree "github.com/glabrego/odyssey-reader/internal/tui/tree"
)

type ContentsRenderInput struct {
	Rows        []tuitree.Row
	Start       int
	End         int
	Cursor      int
	CurrentPage int
	Width       int
	Expanded    map[string]bool
}

func RenderContentsBody(in ContentsRenderInput, th tuitheme.Theme) string {
	if len(in.Rows) == 0 || in.Start >= in.End || in.Start < 0 {
		return ""
	}
	var b strings.Builder
	for i := in.Start; i < in.End && i < len(in.Rows); i++ {
		row := in.Rows[i]
		switch row.Kind {
		case tuitree.RowBook:
			prefix := "▸ "
			if in.Expanded[row.BookKey] {
				prefix = "▾ "
			}
			current := in.CurrentPage >= row.Page && in.CurrentPage < row.Page+row.PageCount
			b.WriteString(RenderContentsLine(prefix+row.Label, PageRangeLabel(row.Page, row.PageCount), in.Width, true, i == in.Cursor, current, th))
		case tuitree.RowPage:
			b.WriteString(RenderContentsLine("    "+row.Label, "", in.Width, false, i == in.Cursor, in.CurrentPage == row.Page, th))
		}
		b.WriteString("\n")
	}
	return b.String()
}
