package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/app"
	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/llm"
	"github.com/glabrego/odyssey-reader/internal/reader"
	"github.com/glabrego/odyssey-reader/internal/settings"
	"github.com/glabrego/odyssey-reader/internal/tui/actions"
	"github.com/glabrego/odyssey-reader/internal/tui/platform"
	"github.com/glabrego/odyssey-reader/internal/tui/state"
	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
	tuitree "github.com/glabrego/odyssey-reader/internal/tui/tree"
	"github.com/glabrego/odyssey-reader/internal/tui/view"
)

const statusTTL = 4 * time.Second

// Service is everything the model needs from the application layer.
// Navigation and selection calls are made on the UI goroutine only; the
// analysis and settings calls run inside commands.
type Service interface {
	actions.Service
	CurrentPage() reader.Page
	TotalPages() int
	Pages() []reader.Page
	NextPage() (bool, error)
	PrevPage() (bool, error)
	JumpTo(n int) error
	ReplacePages(pages []reader.Page) error
	Select(text string, rng reader.Range)
	ClearSelection()
	Selection() (string, reader.Range, bool)
	SelectionIsSingleWord() bool
	Records(page int) []commentary.Record
	AllRecords() []commentary.Record
	HasPageAnalysis(page int) bool
	Usage() app.Usage
	ResetPrompt(kind app.PromptKind) string
}

type mode int

const (
	modeRead mode = iota
	modeSelect
	modeJump
	modeQuestion
	modeKey
	modeQuota
	modeSettings
	modeEditor
	modeContents
)

type clearStatusMsg struct {
	id int
}

type Preferences struct {
	Theme    string
	FontSize int
}

// Options configure a Model beyond its service.
type Options struct {
	// SourcePath and WordsPerPage are used to re-read the source on change.
	SourcePath   string
	WordsPerPage int
	// Changes delivers settled source file changes; nil disables reloading.
	Changes   <-chan struct{}
	ExportDir string
	// NeedsKey opens the API key prompt on startup.
	NeedsKey bool
	// SeedKey reports a key from the environment that stands in for a stored one.
	SeedKey bool
	// RequestTimeout bounds each analysis command; zero leaves it unbounded.
	RequestTimeout time.Duration
	Title          string
	Logger         *zap.Logger
}

type failedRequest struct {
	req actions.Request
	err error
}

type Model struct {
	service  Service
	mode     mode
	showHelp bool
	width    int
	height   int

	theme    tuitheme.Theme
	fontSize int
	hasKey   bool
	seedKey  bool
	quota    int

	input      textinput.Model
	editor     textarea.Model
	editorKind app.PromptKind
	// returnMode is where an input or editor goes back to when closed.
	returnMode mode
	spinner    spinner.Model
	commentary viewport.Model

	nextRequestID int
	pending       []actions.Request
	failed        []failedRequest
	awaitingKey   *actions.Request
	expanded      map[string]bool
	cardCursor    int
	rendered      map[string]string

	pageTop     int
	markAnchor  int
	markCursor  int
	markTotal   int
	contentsCur int
	openBooks   map[string]bool

	status   string
	statusID int
	err      error

	sourcePath     string
	wordsPerPage   int
	requestTimeout time.Duration
	changes        <-chan struct{}
	exportDir      string
	title          string

	copyFn         func(string) error
	nowFn          func() time.Time
	renderMarkdown view.MarkdownFunc
	logger         *zap.Logger
}

func NewModel(service Service, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	title := opts.Title
	if title == "" {
		title = "The Odyssey"
	}
	wpp := opts.WordsPerPage
	if wpp <= 0 {
		wpp = config.WordsPerPage
	}

	input := textinput.New()
	input.CharLimit = 512

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 8000

	m := Model{
		service:        service,
		theme:          tuitheme.Default(),
		fontSize:       config.DefaultFontSize,
		hasKey:         !opts.NeedsKey,
		seedKey:        opts.SeedKey,
		quota:          config.DefaultMaxAPICalls,
		input:          input,
		editor:         editor,
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot)),
		commentary:     viewport.New(0, 0),
		expanded:       make(map[string]bool),
		rendered:       make(map[string]string),
		openBooks:      make(map[string]bool),
		sourcePath:     opts.SourcePath,
		wordsPerPage:   wpp,
		requestTimeout: opts.RequestTimeout,
		changes:        opts.Changes,
		exportDir:      opts.ExportDir,
		title:          title,
		copyFn:         platform.CopyToClipboard,
		nowFn:          time.Now,
		renderMarkdown: view.NewGlamourMarkdown().Render,
		logger:         logger,
	}
	if service != nil {
		m.quota = service.Usage().Quota
	}
	if opts.NeedsKey {
		m.returnMode = modeRead
		m.openInput(modeKey)
		m.status = "Please enter your API key in settings"
	}
	return m
}

func (m *Model) ApplyPreferences(prefs Preferences) {
	m.theme = tuitheme.ForName(prefs.Theme)
	m.fontSize = settings.ClampFontSize(prefs.FontSize)
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{actions.WatchCmd(m.changes)}
	if m.mode == modeKey {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncCommentary()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if len(m.pending) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case actions.AnalysisSuccessMsg:
		m.removePending(msg.Request.ID)
		m.expanded[msg.Record.ID] = true
		m.releaseSelection(msg.Request)
		m.logger.Debug("analysis finished",
			zap.String("kind", string(msg.Request.Kind)),
			zap.Int("page", msg.Request.Page.Number),
			zap.Duration("duration", msg.Duration),
		)
		if msg.Request.Page.Number == m.currentPageNumber() {
			m.cardCursor = len(m.service.Records(msg.Request.Page.Number)) - 1
			return m, m.flash(fmt.Sprintf("%s ready (%.1fs)", msg.Request.Kind.Label(), msg.Duration.Seconds()))
		}
		return m, m.flash(fmt.Sprintf("%s for page %d ready", msg.Request.Kind.Label(), msg.Request.Page.Number))
	case actions.AnalysisErrorMsg:
		m.removePending(msg.Request.ID)
		m.logger.Warn("analysis failed",
			zap.String("kind", string(msg.Request.Kind)),
			zap.Int("page", msg.Request.Page.Number),
			zap.String("error_kind", llm.Kind(msg.Err).String()),
			zap.Error(msg.Err),
		)
		m.err = msg.Err
		switch llm.Kind(msg.Err) {
		case llm.KindMissingKey:
			req := msg.Request
			m.awaitingKey = &req
			m.hasKey = false
			m.returnMode = modeRead
			cmd := m.openInput(modeKey)
			m.err = msg.Err
			return m, cmd
		case llm.KindQuotaExceeded:
			return m, nil
		}
		m.failed = append(m.failed, failedRequest{req: msg.Request, err: msg.Err})
		return m, nil

	case actions.APIKeySavedMsg:
		m.hasKey = true
		m.err = nil
		m.closeInput()
		cmd := m.flash("API key saved")
		if m.awaitingKey != nil {
			req := *m.awaitingKey
			m.awaitingKey = nil
			var issue tea.Cmd
			m, issue = m.issue(req)
			return m, tea.Batch(cmd, issue)
		}
		return m, cmd
	case actions.APIKeyClearedMsg:
		m.hasKey = false
		if m.seedKey {
			return m, m.flash("API key cleared")
		}
		m.returnMode = modeRead
		cmd := m.openInput(modeKey)
		m.status = "API key cleared. Please enter your API key in settings"
		return m, cmd
	case actions.QuotaSavedMsg:
		m.quota = msg.Quota
		m.err = nil
		m.closeInput()
		return m, m.flash(fmt.Sprintf("API call limit set to %d", msg.Quota))
	case actions.ThemeChangedMsg:
		m.theme = tuitheme.ForName(msg.Theme)
		return m, m.flash("Theme: " + msg.Theme)
	case actions.FontSizeChangedMsg:
		m.fontSize = msg.Size
		m.pageTop = 0
		return m, m.flash(fmt.Sprintf("Font size: %d", msg.Size))
	case actions.PromptLoadedMsg:
		m.editorKind = msg.Kind
		m.editor.SetValue(msg.Text)
		m.returnMode = modeSettings
		m.mode = modeEditor
		m.err = nil
		return m, m.editor.Focus()
	case actions.PromptSavedMsg:
		m.editor.Blur()
		m.mode = modeSettings
		return m, m.flash("Prompt saved")
	case actions.SettingsErrorMsg:
		m.err = fmt.Errorf("%s: %w", msg.Action, msg.Err)
		return m, nil

	case actions.SourceChangedMsg:
		m.logger.Info("source changed, reloading", zap.String("path", m.sourcePath))
		return m, tea.Batch(actions.ReloadCmd(m.sourcePath, m.wordsPerPage), actions.WatchCmd(m.changes))
	case actions.ReloadSuccessMsg:
		if err := m.service.ReplacePages(msg.Pages); err != nil {
			m.err = err
			return m, nil
		}
		m.pageTop = 0
		m.cardCursor = 0
		if m.mode == modeSelect {
			m.mode = modeRead
		}
		return m, m.flash(fmt.Sprintf("Source reloaded: %d pages", len(msg.Pages)))
	case actions.ReloadErrorMsg:
		m.err = fmt.Errorf("reload source: %w", msg.Err)
		return m, nil

	case actions.ExportSuccessMsg:
		return m, m.flash(fmt.Sprintf("Exported %d entries to %s", msg.Records, msg.Path))
	case actions.ExportErrorMsg:
		m.err = msg.Err
		return m, nil
	case actions.CopySuccessMsg:
		return m, m.flash(msg.Status)
	case actions.CopyErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeJump, modeQuestion, modeKey, modeQuota:
		m.input, cmd = m.input.Update(msg)
	case modeEditor:
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeJump, modeQuestion, modeKey, modeQuota:
		return m.updateInput(msg)
	case modeEditor:
		return m.updateEditor(msg)
	case modeSettings:
		return m.updateSettings(msg)
	case modeContents:
		return m.updateContents(msg)
	case modeSelect:
		return m.updateSelect(msg)
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "right", "l":
		moved, err := m.service.NextPage()
		return m.afterMove(moved, err)
	case "left", "h":
		moved, err := m.service.PrevPage()
		return m.afterMove(moved, err)
	case "g":
		m.returnMode = modeRead
		return m, m.openInput(modeJump)
	case "v":
		m.startMarking()
		return m, nil
	case "esc", "x":
		if _, _, ok := m.service.Selection(); ok {
			m.service.ClearSelection()
			return m, m.flash("Selection cleared")
		}
		m.err = nil
		return m, nil
	case "a":
		return m.issue(actions.Request{Kind: commentary.KindPage, Page: m.service.CurrentPage()})
	case "s":
		text, _, ok := m.service.Selection()
		if !ok {
			m.err = app.ErrNoSelection
			return m, nil
		}
		return m.issue(actions.Request{Kind: commentary.KindSelection, Page: m.service.CurrentPage(), Selection: text})
	case "d":
		text, _, ok := m.service.Selection()
		if !ok {
			m.err = app.ErrNoSelection
			return m, nil
		}
		if !m.service.SelectionIsSingleWord() {
			m.err = app.ErrNotSingleWord
			return m, nil
		}
		return m.issue(actions.Request{Kind: commentary.KindDefinition, Page: m.service.CurrentPage(), Selection: text})
	case "i":
		m.returnMode = modeRead
		return m, m.openInput(modeQuestion)
	case "t":
		return m, actions.ToggleThemeCmd(m.service)
	case "+", "=":
		return m, actions.AdjustFontSizeCmd(m.service, 1)
	case "-":
		return m, actions.AdjustFontSizeCmd(m.service, -1)
	case "K":
		m.returnMode = modeRead
		return m, m.openInput(modeKey)
	case "o":
		m.mode = modeSettings
		m.err = nil
		return m, nil
	case "c":
		m.openContents()
		return m, nil
	case "r":
		return m.retry()
	case "tab", "enter":
		if key := m.focusedCardKey(); key != "" {
			m.expanded[key] = !m.expanded[key]
		}
		return m, nil
	case "]":
		if n := len(m.cards()); m.cardCursor < n-1 {
			m.cardCursor++
		}
		return m, nil
	case "[":
		if m.cardCursor > 0 {
			m.cardCursor--
		}
		return m, nil
	case "j", "down":
		m.commentary.LineDown(1)
		return m, nil
	case "k", "up":
		m.commentary.LineUp(1)
		return m, nil
	case "pgdown", "ctrl+d":
		m.scrollPage(m.pageHeight() / 2)
		return m, nil
	case "pgup", "ctrl+u":
		m.scrollPage(-m.pageHeight() / 2)
		return m, nil
	case "e":
		records := m.service.AllRecords()
		if len(records) == 0 {
			return m, m.flash("No commentary to export yet")
		}
		return m, actions.ExportCmd(records, m.exportDir, m.title, m.nowFn())
	case "y":
		rec, ok := m.focusedRecord()
		if !ok {
			return m, m.flash("Nothing to copy")
		}
		return m, actions.CopyCmd(rec.Response, m.copyFn)
	}
	return m, nil
}

func (m Model) afterMove(moved bool, err error) (Model, tea.Cmd) {
	if moved {
		m.pageTop = 0
		m.cardCursor = 0
		m.commentary.GotoTop()
	}
	if err != nil {
		m.err = err
	}
	return m, nil
}

// issue starts an analysis for a request whose page was captured now.
func (m Model) issue(req actions.Request) (Model, tea.Cmd) {
	m.nextRequestID++
	req.ID = m.nextRequestID
	m.pending = append(m.pending, req)
	m.err = nil
	m.cardCursor = len(m.service.Records(req.Page.Number)) + len(m.failedOn(req.Page.Number)) + len(m.pendingOn(req.Page.Number)) - 1
	cmds := []tea.Cmd{actions.AnalyzeCmd(m.service, req, m.requestTimeout)}
	if len(m.pending) == 1 {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// retry re-issues the most recent failed request on the current page.
func (m Model) retry() (Model, tea.Cmd) {
	page := m.currentPageNumber()
	for i := len(m.failed) - 1; i >= 0; i-- {
		f := m.failed[i]
		if f.req.Page.Number != page {
			continue
		}
		m.failed = append(m.failed[:i:i], m.failed[i+1:]...)
		req := f.req
		// The source may have been reloaded since the failure.
		if pages := m.service.Pages(); page >= 1 && page <= len(pages) {
			req.Page = pages[page-1]
		}
		return m.issue(req)
	}
	return m, m.flash("Nothing to retry")
}

// releaseSelection clears the selection a finished selection or definition
// request consumed, unless the reader has since selected something else.
func (m Model) releaseSelection(req actions.Request) {
	if req.Kind != commentary.KindSelection && req.Kind != commentary.KindDefinition {
		return
	}
	text, _, ok := m.service.Selection()
	if !ok || text != req.Selection || req.Page.Number != m.currentPageNumber() {
		return
	}
	m.service.ClearSelection()
}

func (m *Model) removePending(id int) {
	out := m.pending[:0:0]
	for _, req := range m.pending {
		if req.ID != id {
			out = append(out, req)
		}
	}
	m.pending = out
}

func (m Model) pendingOn(page int) []actions.Request {
	var out []actions.Request
	for _, req := range m.pending {
		if req.Page.Number == page {
			out = append(out, req)
		}
	}
	return out
}

func (m Model) failedOn(page int) []failedRequest {
	var out []failedRequest
	for _, f := range m.failed {
		if f.req.Page.Number == page {
			out = append(out, f)
		}
	}
	return out
}

func (m Model) currentPageNumber() int {
	if m.service == nil {
		return 0
	}
	return m.service.CurrentPage().Number
}

// cards lists the current page's commentary oldest first, then failed and
// in-flight requests.
func (m Model) cards() []view.Card {
	if m.service == nil {
		return nil
	}
	page := m.currentPageNumber()
	records := m.service.Records(page)
	failed := m.failedOn(page)
	pending := m.pendingOn(page)

	cards := make([]view.Card, 0, len(records)+len(failed)+len(pending))
	for _, rec := range records {
		c := view.Card{
			Key:      rec.ID,
			Title:    actions.Request{Kind: rec.Kind, Selection: rec.Selection, Question: rec.Question}.Label(),
			Meta:     rec.CreatedAt.Local().Format("15:04:05"),
			Body:     rec.Response,
			Expanded: m.expanded[rec.ID],
		}
		if rec.Kind == commentary.KindSelection {
			c.Quote = rec.Selection
		}
		cards = append(cards, c)
	}
	for _, f := range failed {
		c := view.Card{
			Key:   fmt.Sprintf("failed-%d", f.req.ID),
			Title: f.req.Label(),
			Body:  f.err.Error(),
			State: view.CardFailed,
		}
		if llm.Retryable(f.err) {
			c.Hint = "press r to retry"
		}
		cards = append(cards, c)
	}
	for _, req := range pending {
		cards = append(cards, view.Card{
			Key:   fmt.Sprintf("pending-%d", req.ID),
			Title: req.Label(),
			State: view.CardPending,
		})
	}
	cursor := state.ClampCursor(m.cardCursor, len(cards))
	for i := range cards {
		cards[i].Focused = i == cursor
	}
	return cards
}

func (m Model) focusedCardKey() string {
	for _, c := range m.cards() {
		if c.Focused && c.State == view.CardDone {
			return c.Key
		}
	}
	return ""
}

func (m Model) focusedRecord() (commentary.Record, bool) {
	key := m.focusedCardKey()
	if key == "" {
		return commentary.Record{}, false
	}
	for _, rec := range m.service.Records(m.currentPageNumber()) {
		if rec.ID == key {
			return rec, true
		}
	}
	return commentary.Record{}, false
}

func (m *Model) syncCommentary() {
	if m.service == nil {
		return
	}
	m.commentary.SetContent(view.RenderCards(view.CardsInput{
		Cards:   m.cards(),
		Width:   m.commentary.Width,
		Spinner: m.spinner.View(),
		Render:  m.renderMarkdown,
		Style:   m.theme.Glamour,
		Cache:   m.rendered,
	}, m.theme))
}

func (m *Model) flash(status string) tea.Cmd {
	m.status = status
	m.statusID++
	return clearStatusCmd(m.statusID, statusTTL)
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

// Input modal.

func (m *Model) openInput(md mode) tea.Cmd {
	m.mode = md
	m.err = nil
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	switch md {
	case modeJump:
		m.input.Prompt = "Go to page: "
		m.input.Placeholder = fmt.Sprintf("1-%d", m.service.TotalPages())
	case modeQuestion:
		m.input.Prompt = "Ask about this page: "
		m.input.Placeholder = "Why does Telemachus leave Ithaca?"
	case modeKey:
		m.input.Prompt = "Anthropic API key: "
		m.input.Placeholder = "sk-ant-..."
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	case modeQuota:
		m.input.Prompt = "API call limit: "
		m.input.Placeholder = strconv.Itoa(m.quota)
	}
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.input.Reset()
	if m.mode == modeJump || m.mode == modeQuestion || m.mode == modeKey || m.mode == modeQuota {
		m.mode = m.returnMode
	}
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeKey {
			m.awaitingKey = nil
		}
		m.closeInput()
		m.err = nil
		return m, nil
	case "enter":
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput() (Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	switch m.mode {
	case modeJump:
		n, err := strconv.Atoi(value)
		if err != nil {
			m.err = fmt.Errorf("invalid page number %q", value)
			return m, nil
		}
		if err := m.service.JumpTo(n); err != nil {
			m.err = err
			return m, nil
		}
		m.closeInput()
		return m.afterMove(true, nil)
	case modeQuestion:
		if value == "" {
			m.err = app.ErrEmptyQuestion
			return m, nil
		}
		m.closeInput()
		return m.issue(actions.Request{Kind: commentary.KindQuestion, Page: m.service.CurrentPage(), Question: value})
	case modeKey:
		return m, actions.SaveAPIKeyCmd(m.service, value)
	case modeQuota:
		return m, actions.SetQuotaCmd(m.service, value)
	}
	return m, nil
}

// Selection marking.

func (m *Model) startMarking() {
	page := m.service.CurrentPage()
	m.markTotal = len(strings.Fields(page.Text))
	if m.markTotal == 0 {
		return
	}
	m.markAnchor, m.markCursor = 0, 0
	if _, rng, ok := m.service.Selection(); ok {
		m.markAnchor = state.ClampCursor(rng.Start, m.markTotal)
		m.markCursor = state.ClampCursor(rng.End-1, m.markTotal)
	}
	m.mode = modeSelect
	m.err = nil
}

func (m Model) updateSelect(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "right", "l":
		m.markCursor = state.MoveWord(m.markCursor, 1, m.markTotal)
	case "left", "h":
		m.markCursor = state.MoveWord(m.markCursor, -1, m.markTotal)
	case "w":
		if m.markAnchor < m.markTotal-1 && m.markCursor < m.markTotal-1 {
			m.markAnchor++
			m.markCursor++
		}
	case "b":
		if m.markAnchor > 0 && m.markCursor > 0 {
			m.markAnchor--
			m.markCursor--
		}
	case "enter":
		rng := state.SelectionRange(m.markAnchor, m.markCursor)
		text := reader.WordsIn(m.service.CurrentPage().Text, rng)
		m.service.Select(text, rng)
		m.mode = modeRead
		words := rng.End - rng.Start
		if words == 1 {
			return m, m.flash("Selected 1 word: s explain, d define")
		}
		return m, m.flash(fmt.Sprintf("Selected %d words: s explain", words))
	case "esc":
		m.mode = modeRead
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// Settings and prompt editor.

func (m Model) updateSettings(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "o":
		m.mode = modeRead
		m.err = nil
	case "q":
		return m, tea.Quit
	case "1":
		return m, actions.LoadPromptCmd(m.service, app.PromptPage)
	case "2":
		return m, actions.LoadPromptCmd(m.service, app.PromptSelection)
	case "m":
		m.returnMode = modeSettings
		return m, m.openInput(modeQuota)
	case "K":
		m.returnMode = modeSettings
		return m, m.openInput(modeKey)
	case "ctrl+k":
		return m, actions.ClearAPIKeyCmd(m.service)
	case "t":
		return m, actions.ToggleThemeCmd(m.service)
	case "+", "=":
		return m, actions.AdjustFontSizeCmd(m.service, 1)
	case "-":
		return m, actions.AdjustFontSizeCmd(m.service, -1)
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editor.Blur()
		m.mode = modeSettings
		m.err = nil
		return m, nil
	case "ctrl+s":
		return m, actions.SavePromptCmd(m.service, m.editorKind, m.editor.Value())
	case "ctrl+r":
		m.editor.SetValue(m.service.ResetPrompt(m.editorKind))
		return m, m.flash("Default restored; ctrl+s to save")
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// Table of contents.

func (m Model) contentsRows() []tuitree.Row {
	return tuitree.BuildRows(m.service.Pages(), tuitree.BuildOptions{Expanded: m.openBooks})
}

func (m *Model) openContents() {
	page := m.service.CurrentPage()
	m.openBooks[tuitree.BookKey(page.BookTitle, page.BookNumber)] = true
	m.contentsCur = max(0, tuitree.CursorForPage(m.contentsRows(), page.Number))
	m.mode = modeContents
	m.err = nil
}

func (m Model) updateContents(msg tea.KeyMsg) (Model, tea.Cmd) {
	rows := m.contentsRows()
	switch msg.String() {
	case "esc", "c":
		m.mode = modeRead
	case "q":
		return m, tea.Quit
	case "down", "j":
		m.contentsCur = state.ClampCursor(m.contentsCur+1, len(rows))
	case "up", "k":
		m.contentsCur = state.ClampCursor(m.contentsCur-1, len(rows))
	case "pgdown":
		m.contentsCur = state.ClampCursor(m.contentsCur+state.PageStep(m.height, m.status != ""), len(rows))
	case "pgup":
		m.contentsCur = state.ClampCursor(m.contentsCur-state.PageStep(m.height, m.status != ""), len(rows))
	case " ", "tab", "right", "left":
		if len(rows) == 0 {
			return m, nil
		}
		book := tuitree.BookRowFor(rows, m.contentsCur)
		key := rows[book].BookKey
		open := !m.openBooks[key]
		switch msg.String() {
		case "right":
			open = true
		case "left":
			open = false
		}
		m.openBooks[key] = open
		if !open {
			m.contentsCur = book
		}
	case "enter":
		if len(rows) == 0 {
			return m, nil
		}
		row := rows[state.ClampCursor(m.contentsCur, len(rows))]
		if err := m.service.JumpTo(row.Page); err != nil {
			m.err = err
			return m, nil
		}
		m.mode = modeRead
		return m.afterMove(true, nil)
	}
	return m, nil
}

// Layout.

func (m *Model) resize() {
	layout := state.SplitPanes(m.width)
	body := m.bodyHeight()
	m.commentary.Width = layout.CommentaryWidth
	m.commentary.Height = body
	if !layout.SideBySide {
		m.commentary.Height = body - m.pageHeight() - 1
	}
	if m.commentary.Height < 3 {
		m.commentary.Height = 3
	}
	m.editor.SetWidth(max(20, m.width-4))
	m.editor.SetHeight(max(5, body-4))
	m.input.Width = max(20, m.width-30)
}

func (m Model) bodyHeight() int {
	h := m.height - 6
	if m.inputOpen() {
		h -= 2
	}
	if h < 8 {
		h = 8
	}
	return h
}

func (m Model) pageHeight() int {
	body := m.bodyHeight()
	if state.SplitPanes(m.width).SideBySide {
		return body
	}
	return body / 2
}

func (m Model) inputOpen() bool {
	switch m.mode {
	case modeJump, modeQuestion, modeKey, modeQuota:
		return true
	}
	return false
}

func (m Model) pageLines() []string {
	layout := state.SplitPanes(m.width)
	measure := state.Measure(m.fontSize, layout.ReadingWidth-2)
	in := view.PageInput{
		Page:    m.service.CurrentPage(),
		Total:   m.service.TotalPages(),
		Measure: measure,
		Margin:  (layout.ReadingWidth - measure) / 2,
	}
	if m.mode == modeSelect {
		rng := state.SelectionRange(m.markAnchor, m.markCursor)
		in.Marking = &rng
		in.Cursor = m.markCursor
	} else if _, rng, ok := m.service.Selection(); ok {
		in.Selected = &rng
	}
	return view.PageLines(in, m.theme)
}

func (m *Model) scrollPage(delta int) {
	maxTop := view.DetailMaxTop(len(m.pageLines()), m.pageHeight())
	m.pageTop = min(max(0, m.pageTop+delta), maxTop)
}

func (m Model) modeName() string {
	if m.showHelp {
		return "help"
	}
	switch m.mode {
	case modeSelect:
		return "select"
	case modeJump:
		return "jump"
	case modeQuestion:
		return "ask"
	case modeKey:
		return "api key"
	case modeQuota:
		return "call limit"
	case modeSettings:
		return "settings"
	case modeEditor:
		return "prompt"
	case modeContents:
		return "contents"
	}
	return "read"
}

func (m Model) toolbarMode() string {
	switch {
	case m.showHelp:
		return "help"
	case m.inputOpen():
		return "input"
	case m.mode == modeEditor:
		return "editor"
	}
	return m.modeName()
}

func (m Model) View() string {
	if m.service == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(m.title) + " " + m.theme.ModePill.Render(m.modeName()) + "\n")
	b.WriteString(m.theme.Hint.Render(view.Toolbar(m.toolbarMode())) + "\n\n")

	switch {
	case m.showHelp:
		b.WriteString(m.helpView())
	case m.mode == modeSettings:
		b.WriteString(m.settingsView())
	case m.mode == modeEditor:
		b.WriteString(m.editorView())
	case m.mode == modeContents:
		b.WriteString(m.contentsView())
	default:
		b.WriteString(m.readingView())
	}
	b.WriteString("\n")
	if m.inputOpen() {
		b.WriteString(m.theme.Modal.Render(m.input.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) readingView() string {
	layout := state.SplitPanes(m.width)
	height := m.pageHeight()
	lines := m.pageLines()
	top := min(m.pageTop, view.DetailMaxTop(len(lines), height))
	page := strings.TrimRight(view.RenderDetailLines(lines, top, height), "\n")
	commentary := m.commentary.View()

	if layout.SideBySide {
		left := lipgloss.NewStyle().Width(layout.ReadingWidth).Height(height).Render(page)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", commentary)
	}
	left := lipgloss.NewStyle().Height(height).Render(page)
	rule := m.theme.Hint.Render(strings.Repeat("─", max(1, layout.CommentaryWidth)))
	return lipgloss.JoinVertical(lipgloss.Left, left, rule, commentary)
}

func (m Model) contentsView() string {
	rows := m.contentsRows()
	height := m.bodyHeight()
	start, end := state.CenteredWindow(len(rows), m.contentsCur, height)
	return strings.TrimRight(view.RenderContentsBody(view.ContentsRenderInput{
		Rows:        rows,
		Start:       start,
		End:         end,
		Cursor:      m.contentsCur,
		CurrentPage: m.currentPageNumber(),
		Width:       max(20, m.width),
		Expanded:    m.openBooks,
	}, m.theme), "\n")
}

func (m Model) settingsView() string {
	key := "not set"
	if m.hasKey {
		key = "saved"
	}
	lines := []string{
		m.theme.Section.Render("Settings"),
		"",
		"  1       Edit page analysis prompt",
		"  2       Edit selection prompt",
		fmt.Sprintf("  m       API call limit: %d", m.quota),
		fmt.Sprintf("  K       API key: %s", key),
		"  ctrl+k  Clear API key",
		fmt.Sprintf("  t       Theme: %s", m.theme.Name),
		fmt.Sprintf("  +/-     Font size: %d", m.fontSize),
		"",
		m.theme.Hint.Render("Page prompt: {TEXT}. Selection prompt: {BOOK} {CONTEXT_BEFORE} {SELECTION} {CONTEXT_AFTER}."),
	}
	return view.CenterBlock(strings.Join(lines, "\n"), m.width)
}

func (m Model) editorView() string {
	title := "Page analysis prompt"
	if m.editorKind == app.PromptSelection {
		title = "Selection prompt"
	}
	return m.theme.Section.Render(title) + "\n\n" + m.editor.View()
}

func (m Model) helpView() string {
	lines := []string{
		m.theme.Section.Render("Reading"),
		"  ←/→ h/l   previous / next page",
		"  g         go to page",
		"  c         table of contents",
		"  pgup/pgdn scroll the page",
		"  +/-       font size",
		"  t         light / dark theme",
		"",
		m.theme.Section.Render("Commentary"),
		"  a         analyze current page",
		"  v         select words (enter to confirm)",
		"  s         explain selection",
		"  d         define selected word",
		"  i         ask a question about this page",
		"  x/esc     clear selection",
		"  [ ]       focus previous / next card",
		"  tab       expand or collapse card",
		"  j/k       scroll commentary",
		"  r         retry failed request",
		"  y         copy focused card",
		"  e         export all commentary",
		"",
		m.theme.Section.Render("Settings"),
		"  o         settings and prompts",
		"  K         API key",
		"  q         quit",
	}
	return strings.Join(lines, "\n")
}

func (m Model) messagePanel() string {
	errText := ""
	if m.err != nil {
		errText = m.err.Error()
	}
	return view.CompactMessage(len(m.pending) > 0, m.err != nil, m.status, errText, m.theme)
}

func (m Model) footer() string {
	page := m.service.CurrentPage()
	usage := m.service.Usage()
	in := view.FooterInput{
		BookTitle: page.BookTitle,
		Page:      page.Number,
		Total:     m.service.TotalPages(),
		Calls:     usage.Calls,
		Quota:     usage.Quota,
		Cost:      usage.EstimatedCost,
		NearLimit: usage.NearLimit,
		Theme:     m.theme.Name,
		FontSize:  m.fontSize,
	}
	if text, _, ok := m.service.Selection(); ok {
		in.Selection = text
	}
	return view.Footer(in, m.theme)
}
