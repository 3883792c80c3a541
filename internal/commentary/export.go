package commentary

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
)

// Export writes records as a Markdown document grouped by page. Within a
// page, records keep their insertion order.
func Export(w io.Writer, title string, records []Record, now time.Time) error {
	md := markdown.NewMarkdown(w)

	md.H1(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Exported", now.Format("2006-01-02 15:04:05 MST")},
			{"Records", strconv.Itoa(len(records))},
			{"Pages", strconv.Itoa(len(pagesOf(records)))},
		},
	})
	md.PlainText("")

	if len(records) == 0 {
		md.Note("No commentary was requested in this session.")
		return md.Build()
	}

	byPage := make(map[int][]Record)
	for _, r := range records {
		byPage[r.Page] = append(byPage[r.Page], r)
	}
	for _, page := range pagesOf(records) {
		md.H2(fmt.Sprintf("Page %d", page))
		md.PlainText("")
		for _, r := range byPage[page] {
			md.PlainTextf("**%s** (%s)", r.Kind.Label(), r.CreatedAt.Format("15:04:05"))
			md.PlainText("")
			if r.Selection != "" {
				md.PlainText("> " + strings.ReplaceAll(r.Selection, "\n", "\n> "))
				md.PlainText("")
			}
			if r.Question != "" {
				md.PlainTextf("*Q: %s*", r.Question)
				md.PlainText("")
			}
			md.PlainText(strings.TrimSpace(r.Response))
			md.PlainText("")
		}
		md.HorizontalRule()
	}
	return md.Build()
}

func pagesOf(records []Record) []int {
	seen := make(map[int]struct{})
	var pages []int
	for _, r := range records {
		if _, ok := seen[r.Page]; ok {
			continue
		}
		seen[r.Page] = struct{}{}
		pages = append(pages, r.Page)
	}
	sort.Ints(pages)
	return pages
}
