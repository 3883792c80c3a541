package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glabrego/odyssey-reader/internal/reader"
)

func newPagesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the books of the source with their first page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := opts.loadPages(cmd.Context())
			if err != nil {
				return err
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Book", "Title", "First page", "Pages")
			for _, b := range reader.Books(pages) {
				t.Row(b.Number, b.Title, humanize.Comma(int64(b.FirstPage)), humanize.Comma(int64(b.PageCount)))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.Render())
			fmt.Fprintf(out, "%s pages of %d words\n", humanize.Comma(int64(len(pages))), opts.cfg.WordsPerPage)
			return nil
		},
	}
}
