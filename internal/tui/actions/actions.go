package actions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/odyssey-reader/internal/app"
	"github.com/glabrego/odyssey-reader/internal/book"
	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/reader"
)

// analysisSlack is added to the HTTP timeout so the client reports its own
// timeout before the command context expires.
const analysisSlack = 10 * time.Second

type Service interface {
	AnalyzePage(ctx context.Context, page reader.Page) (commentary.Record, error)
	AnalyzeSelection(ctx context.Context, page reader.Page, selection string) (commentary.Record, error)
	AskQuestion(ctx context.Context, page reader.Page, question string) (commentary.Record, error)
	DefineWord(ctx context.Context, page reader.Page, word string) (commentary.Record, error)
	SaveAPIKey(ctx context.Context, key string) error
	ClearAPIKey(ctx context.Context) error
	SetQuota(ctx context.Context, raw string) (int, error)
	ToggleTheme(ctx context.Context) (string, error)
	AdjustFontSize(ctx context.Context, delta int) (int, error)
	Prompt(ctx context.Context, kind app.PromptKind) (string, error)
	SavePrompt(ctx context.Context, kind app.PromptKind, text string) error
}

// Request is one analysis as issued: the page is captured when the user asks,
// so the result lands on that page wherever the reader is by then.
type Request struct {
	ID        int
	Kind      commentary.Kind
	Page      reader.Page
	Selection string
	Question  string
}

func (r Request) Label() string {
	switch r.Kind {
	case commentary.KindSelection, commentary.KindDefinition:
		return fmt.Sprintf("%s: %q", r.Kind.Label(), r.Selection)
	case commentary.KindQuestion:
		return fmt.Sprintf("%s: %s", r.Kind.Label(), r.Question)
	default:
		return r.Kind.Label()
	}
}

type AnalysisSuccessMsg struct {
	Request  Request
	Record   commentary.Record
	Duration time.Duration
}

type AnalysisErrorMsg struct {
	Request  Request
	Err      error
	Duration time.Duration
}

type APIKeySavedMsg struct{}

type APIKeyClearedMsg struct{}

type QuotaSavedMsg struct {
	Quota int
}

type ThemeChangedMsg struct {
	Theme string
}

type FontSizeChangedMsg struct {
	Size int
}

type PromptLoadedMsg struct {
	Kind app.PromptKind
	Text string
}

type PromptSavedMsg struct {
	Kind app.PromptKind
}

type SettingsErrorMsg struct {
	Action string
	Err    error
}

type SourceChangedMsg struct{}

type ReloadSuccessMsg struct {
	Pages []reader.Page
}

type ReloadErrorMsg struct {
	Err error
}

type ExportSuccessMsg struct {
	Path    string
	Records int
	Bytes   int
}

type ExportErrorMsg struct {
	Err error
}

type CopySuccessMsg struct {
	Status string
}

type CopyErrorMsg struct {
	Err error
}

// AnalyzeCmd runs one analysis. A zero httpTimeout means the request is not
// bounded by a deadline.
func AnalyzeCmd(service Service, req Request, httpTimeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := analysisContext(httpTimeout)
		defer cancel()
		start := time.Now()

		var (
			rec commentary.Record
			err error
		)
		switch req.Kind {
		case commentary.KindSelection:
			rec, err = service.AnalyzeSelection(ctx, req.Page, req.Selection)
		case commentary.KindQuestion:
			rec, err = service.AskQuestion(ctx, req.Page, req.Question)
		case commentary.KindDefinition:
			rec, err = service.DefineWord(ctx, req.Page, req.Selection)
		default:
			rec, err = service.AnalyzePage(ctx, req.Page)
		}
		if err != nil {
			return AnalysisErrorMsg{Request: req, Err: err, Duration: time.Since(start)}
		}
		return AnalysisSuccessMsg{Request: req, Record: rec, Duration: time.Since(start)}
	}
}

func analysisContext(httpTimeout time.Duration) (context.Context, context.CancelFunc) {
	if httpTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), httpTimeout+analysisSlack)
}

func SaveAPIKeyCmd(service Service, key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := service.SaveAPIKey(ctx, key); err != nil {
			return SettingsErrorMsg{Action: "save API key", Err: err}
		}
		return APIKeySavedMsg{}
	}
}

func ClearAPIKeyCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := service.ClearAPIKey(ctx); err != nil {
			return SettingsErrorMsg{Action: "clear API key", Err: err}
		}
		return APIKeyClearedMsg{}
	}
}

func SetQuotaCmd(service Service, raw string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		n, err := service.SetQuota(ctx, raw)
		if err != nil {
			return SettingsErrorMsg{Action: "set call limit", Err: err}
		}
		return QuotaSavedMsg{Quota: n}
	}
}

func ToggleThemeCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		theme, err := service.ToggleTheme(ctx)
		if err != nil {
			return SettingsErrorMsg{Action: "save theme", Err: err}
		}
		return ThemeChangedMsg{Theme: theme}
	}
}

func AdjustFontSizeCmd(service Service, delta int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		size, err := service.AdjustFontSize(ctx, delta)
		if err != nil {
			return SettingsErrorMsg{Action: "save font size", Err: err}
		}
		return FontSizeChangedMsg{Size: size}
	}
}

func LoadPromptCmd(service Service, kind app.PromptKind) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		text, err := service.Prompt(ctx, kind)
		if err != nil {
			return SettingsErrorMsg{Action: "load prompt", Err: err}
		}
		return PromptLoadedMsg{Kind: kind, Text: text}
	}
}

func SavePromptCmd(service Service, kind app.PromptKind, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := service.SavePrompt(ctx, kind, text); err != nil {
			return SettingsErrorMsg{Action: "save prompt", Err: err}
		}
		return PromptSavedMsg{Kind: kind}
	}
}

// WatchCmd waits for the next settled change to the source file.
func WatchCmd(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return SourceChangedMsg{}
	}
}

func ReloadCmd(path string, wordsPerPage int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		segments, err := book.Load(ctx, path)
		if err != nil {
			return ReloadErrorMsg{Err: err}
		}
		pages := reader.Paginate(segments, wordsPerPage)
		if len(pages) == 0 {
			return ReloadErrorMsg{Err: book.ErrEmptySource}
		}
		return ReloadSuccessMsg{Pages: pages}
	}
}

// ExportCmd writes records as Markdown into dir under a timestamped name.
func ExportCmd(records []commentary.Record, dir, title string, now time.Time) tea.Cmd {
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := commentary.Export(&buf, title, records, now); err != nil {
			return ExportErrorMsg{Err: fmt.Errorf("render export: %w", err)}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ExportErrorMsg{Err: fmt.Errorf("create export directory: %w", err)}
		}
		path := filepath.Join(dir, "odyssey-commentary-"+now.Format("20060102-150405")+".md")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return ExportErrorMsg{Err: fmt.Errorf("write export: %w", err)}
		}
		return ExportSuccessMsg{Path: path, Records: len(records), Bytes: buf.Len()}
	}
}

func CopyCmd(text string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(text); err == nil {
				return CopySuccessMsg{Status: "Commentary copied to clipboard"}
			}
		}
		return CopyErrorMsg{Err: fmt.Errorf("could not copy to clipboard")}
	}
}
