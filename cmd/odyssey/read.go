package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/book"
	"github.com/glabrego/odyssey-reader/internal/tui"
)

type readOptions struct {
	noAltScreen bool
	watch       bool
}

func (r *readOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.noAltScreen, "no-alt-screen", false, "draw inline instead of on the alternate screen")
	cmd.Flags().BoolVar(&r.watch, "watch", false, "reload the book when the source file changes")
}

func newReadCmd(opts *rootOptions) *cobra.Command {
	read := &readOptions{}
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Open the reader (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), opts, read)
		},
	}
	read.bind(cmd)
	return cmd
}

func runRead(ctx context.Context, opts *rootOptions, read *readOptions) error {
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

	var changes <-chan struct{}
	if read.watch {
		watcher, err := book.NewWatcher(opts.cfg.SourcePath, opts.logger)
		if err != nil {
			return err
		}
		defer watcher.Close()
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go watcher.Run(watchCtx)
		changes = watcher.Changes()
	}

	seeded := strings.TrimSpace(opts.cfg.SeedAPIKey) != ""
	model := tui.NewModel(service, tui.Options{
		SourcePath:     opts.cfg.SourcePath,
		WordsPerPage:   opts.cfg.WordsPerPage,
		Changes:        changes,
		ExportDir:      opts.cfg.ExportDir,
		NeedsKey:       !service.HasAPIKey(ctx) && !seeded,
		SeedKey:        seeded,
		RequestTimeout: opts.cfg.HTTPTimeout,
		Logger:         opts.logger,
	})

	prefs, err := service.LoadPreferences(ctx)
	if err != nil {
		opts.logger.Warn("could not load preferences, using defaults", zap.Error(err))
	}
	model.ApplyPreferences(tui.Preferences{Theme: prefs.Theme, FontSize: prefs.FontSize})

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !read.noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	opts.logger.Info("reader started", zap.Int("page", service.CurrentPage().Number), zap.Int("pages", service.TotalPages()))
	if _, err := tea.NewProgram(model, programOpts...).Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	usage := service.Usage()
	opts.logger.Info("reader closed",
		zap.Int("calls", usage.Calls),
		zap.Int("abandoned_requests", usage.InFlight),
		zap.Int("records", len(service.AllRecords())),
	)
	return nil
}
