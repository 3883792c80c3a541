// Package tree builds the table-of-contents rows: one row per book, with the
// pages of expanded books listed beneath it.
package tree

import (
	"fmt"
	"strings"

	"github.com/glabrego/odyssey-reader/internal/reader"
)

type RowKind string

const (
	RowBook RowKind = "book"
	RowPage RowKind = "page"
)

type Row struct {
	Kind      RowKind
	Label     string
	BookKey   string
	Page      int
	PageCount int
}

type BuildOptions struct {
	Expanded map[string]bool
	// PreviewWords is how many leading words label a page row.
	PreviewWords int
}

func BookKey(title, number string) string {
	return title + "\x00" + number
}

func BuildRows(pages []reader.Page, opts BuildOptions) []Row {
	books := reader.Books(pages)
	preview := opts.PreviewWords
	if preview <= 0 {
		preview = 8
	}

	rows := make([]Row, 0, len(books))
	for _, b := range books {
		key := BookKey(b.Title, b.Number)
		rows = append(rows, Row{
			Kind:      RowBook,
			Label:     b.Title,
			BookKey:   key,
			Page:      b.FirstPage,
			PageCount: b.PageCount,
		})
		if !opts.Expanded[key] {
			continue
		}
		for n := b.FirstPage; n < b.FirstPage+b.PageCount; n++ {
			rows = append(rows, Row{
				Kind:    RowPage,
				Label:   fmt.Sprintf("p. %d  %s", n, leadingWords(pages[n-1].Text, preview)),
				BookKey: key,
				Page:    n,
			})
		}
	}
	return rows
}

// CursorForPage returns the row that best represents page: the page row when
// its book is expanded, otherwise the book row. It returns -1 for an unknown page.
func CursorForPage(rows []Row, page int) int {
	best := -1
	for i, row := range rows {
		switch row.Kind {
		case RowPage:
			if row.Page == page {
				return i
			}
		case RowBook:
			if page >= row.Page && page < row.Page+row.PageCount {
				best = i
			}
		}
	}
	return best
}

// BookRowFor returns the index of the book row that owns rows[i].
func BookRowFor(rows []Row, i int) int {
	if i < 0 || i >= len(rows) {
		return -1
	}
	for ; i >= 0; i-- {
		if rows[i].Kind == RowBook {
			return i
		}
	}
	return -1
}

func leadingWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
