package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/llm"
	"github.com/glabrego/odyssey-reader/internal/reader"
	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
)

type analyzeOptions struct {
	page      int
	question  string
	selection string
	define    string
	plain     bool
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	a := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Request one analysis without opening the reader",
		Long: `Sends a single request for a page and prints the Markdown response.

Without --question, --selection or --define the page itself is analyzed with the
page prompt. The call counts against a fresh session's limit.`,
		Example: `  odyssey analyze --page 12
  odyssey analyze --page 12 --question "Why does Telemachus call the assembly?"
  odyssey analyze --page 40 --define xenia`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, a)
		},
	}
	cmd.Flags().IntVar(&a.page, "page", 0, "page number (defaults to the saved reading position)")
	cmd.Flags().StringVar(&a.question, "question", "", "ask a question about the page")
	cmd.Flags().StringVar(&a.selection, "selection", "", "explain a passage from the page")
	cmd.Flags().StringVar(&a.define, "define", "", "define a single word")
	cmd.Flags().BoolVar(&a.plain, "plain", false, "print the raw Markdown")
	cmd.MarkFlagsMutuallyExclusive("question", "selection", "define")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *rootOptions, a *analyzeOptions) error {
	ctx := cmd.Context()
	pages, err := opts.loadPages(ctx)
	if err != nil {
		return err
	}
	repo, err := opts.openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	service := opts.newService(ctx, repo)
	if err := service.Open(ctx, pages); err != nil {
		return fmt.Errorf("open book: %w", err)
	}
	page := service.CurrentPage()
	if a.page != 0 {
		// Reading a page here must not move the saved position.
		if a.page < 1 || a.page > len(pages) {
			return &reader.OutOfRangeError{Requested: a.page, Total: len(pages)}
		}
		page = pages[a.page-1]
	}

	var rec commentary.Record
	switch {
	case a.question != "":
		rec, err = service.AskQuestion(ctx, page, a.question)
	case a.selection != "":
		rec, err = service.AnalyzeSelection(ctx, page, a.selection)
	case a.define != "":
		rec, err = service.DefineWord(ctx, page, a.define)
	default:
		rec, err = service.AnalyzePage(ctx, page)
	}
	if err != nil {
		opts.logger.Warn("headless analysis failed", zap.Stringer("error_kind", llm.Kind(err)), zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, page %d of %d\n\n", page.BookTitle, page.Number, len(pages))
	if a.plain {
		fmt.Fprintln(out, strings.TrimSpace(rec.Response))
		return nil
	}
	prefs, err := service.LoadPreferences(ctx)
	if err != nil {
		opts.logger.Warn("could not load preferences, using defaults", zap.Error(err))
	}
	rendered, err := glamour.Render(rec.Response, tuitheme.ForName(prefs.Theme).Glamour)
	if err != nil {
		fmt.Fprintln(out, strings.TrimSpace(rec.Response))
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}
