// Package reader holds the pagination and selection state of a reading session.
package reader

import (
	"strings"

	"github.com/glabrego/odyssey-reader/internal/book"
)

// Page is a fixed run of words from one book. Pages never span books.
type Page struct {
	BookTitle  string
	BookNumber string
	Text       string
	Number     int
}

// Paginate splits every segment into pages of at most wordsPerPage words and
// numbers them from 1 across the whole work.
func Paginate(segments []book.Segment, wordsPerPage int) []Page {
	if wordsPerPage < 1 {
		wordsPerPage = 1
	}
	var pages []Page
	for _, seg := range segments {
		words := strings.Fields(seg.Text)
		for start := 0; start < len(words); start += wordsPerPage {
			end := min(start+wordsPerPage, len(words))
			pages = append(pages, Page{
				BookTitle:  seg.Title,
				BookNumber: seg.Number,
				Text:       strings.Join(words[start:end], " "),
				Number:     len(pages) + 1,
			})
		}
	}
	return pages
}

// BookStart is the first page of a book, used for the table of contents.
type BookStart struct {
	Title     string
	Number    string
	FirstPage int
	PageCount int
}

func Books(pages []Page) []BookStart {
	var out []BookStart
	for _, p := range pages {
		if n := len(out); n > 0 && out[n-1].Title == p.BookTitle && out[n-1].Number == p.BookNumber {
			out[n-1].PageCount++
			continue
		}
		out = append(out, BookStart{Title: p.BookTitle, Number: p.BookNumber, FirstPage: p.Number, PageCount: 1})
	}
	return out
}
