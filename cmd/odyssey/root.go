package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/app"
	"github.com/glabrego/odyssey-reader/internal/book"
	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/llm"
	"github.com/glabrego/odyssey-reader/internal/logging"
	"github.com/glabrego/odyssey-reader/internal/reader"
	"github.com/glabrego/odyssey-reader/internal/settings"
	"github.com/glabrego/odyssey-reader/internal/storage"
)

// rootOptions is shared by every command. It is filled in before any RunE.
type rootOptions struct {
	source  string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	read := &readOptions{}

	cmd := &cobra.Command{
		Use:   "odyssey",
		Short: "Read The Odyssey in the terminal with AI commentary",
		Long: `odyssey pages through Homer's Odyssey one screen at a time and asks
Anthropic's Messages API for commentary on the current page, a selected
passage, a single word or a free-form question.

Run without a subcommand to start the reader.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), opts, read)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.source, "source", "", "book source: text, HTML, PDF or a JSON/YAML manifest (overrides ODYSSEY_SOURCE)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "write debug entries to the log file")
	read.bind(cmd)

	cmd.AddCommand(newReadCmd(opts))
	cmd.AddCommand(newPagesCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newSettingsCmd(opts))
	return cmd
}

func (o *rootOptions) load() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if o.source != "" {
		cfg.SourcePath = o.source
	}
	logger, err := logging.New(cfg.LogPath, o.verbose)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *rootOptions) openRepository(ctx context.Context) (*storage.Repository, error) {
	repo, err := storage.NewRepository(o.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := repo.Init(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("storage schema error: %w", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("storage write check failed (%v). Verify ODYSSEY_DB_PATH is writable: %s", err, o.cfg.DBPath)
	}
	return repo, nil
}

func (o *rootOptions) loadPages(ctx context.Context) ([]reader.Page, error) {
	if err := o.cfg.RequireSource(); err != nil {
		return nil, err
	}
	segments, err := book.Load(ctx, o.cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", o.cfg.SourcePath, err)
	}
	pages := reader.Paginate(segments, o.cfg.WordsPerPage)
	if len(pages) == 0 {
		return nil, book.ErrEmptySource
	}
	o.logger.Info("source loaded",
		zap.String("path", o.cfg.SourcePath),
		zap.Int("books", len(segments)),
		zap.Int("pages", len(pages)),
	)
	return pages, nil
}

// newService wires a fresh session: the call counter starts at zero.
func (o *rootOptions) newService(ctx context.Context, repo *storage.Repository) *app.Service {
	st := settings.New(repo)
	quota, err := st.MaxAPICalls(ctx)
	if err != nil {
		o.logger.Warn("using default call limit", zap.Error(err))
	}
	meter := llm.NewMeter(quota)
	client := llm.NewClient(
		llm.ClientConfig{Endpoint: o.cfg.APIURL, Model: o.cfg.Model, MaxTokens: o.cfg.MaxTokens},
		app.KeySource(st, o.cfg.SeedAPIKey),
		meter,
		&http.Client{Timeout: o.cfg.HTTPTimeout},
		o.logger,
	)
	return app.NewService(st, client, meter, commentary.NewStore(), o.logger)
}
