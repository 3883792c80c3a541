package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/odyssey-reader/internal/app"
	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/llm"
	"github.com/glabrego/odyssey-reader/internal/reader"
	"github.com/glabrego/odyssey-reader/internal/tui/actions"
	"github.com/glabrego/odyssey-reader/internal/tui/view"
)

type fakeService struct {
	pages    []reader.Page
	current  int
	selText  string
	selRange reader.Range
	selOK    bool
	records  []commentary.Record
	response string
	err      error
	calls    int
	quota    int
	theme    string
	fontSize int
	key      string
	prompts  map[app.PromptKind]string
	replaced []reader.Page
}

func newFakeService() *fakeService {
	return &fakeService{
		pages: []reader.Page{
			{Number: 1, BookTitle: "Book One", BookNumber: "1", Text: "Sing to me of the man Muse the man of twists and turns"},
			{Number: 2, BookTitle: "Book One", BookNumber: "1", Text: "driven time and again off course once he had plundered"},
			{Number: 3, BookTitle: "Book Two", BookNumber: "2", Text: "When young Dawn with her rose-red fingers shone once more"},
		},
		response: "## Summary\nThe poet invokes the Muse.",
		quota:    config.DefaultMaxAPICalls,
		theme:    config.ThemeLight,
		fontSize: config.DefaultFontSize,
		prompts:  map[app.PromptKind]string{},
	}
}

func (f *fakeService) record(kind commentary.Kind, page reader.Page, sel, question string) (commentary.Record, error) {
	if f.err != nil {
		return commentary.Record{}, f.err
	}
	f.calls++
	rec := commentary.NewRecord(kind, page.Number, f.response)
	rec.Selection = sel
	rec.Question = question
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeService) AnalyzePage(_ context.Context, page reader.Page) (commentary.Record, error) {
	return f.record(commentary.KindPage, page, "", "")
}

func (f *fakeService) AnalyzeSelection(_ context.Context, page reader.Page, sel string) (commentary.Record, error) {
	return f.record(commentary.KindSelection, page, sel, "")
}

func (f *fakeService) AskQuestion(_ context.Context, page reader.Page, q string) (commentary.Record, error) {
	return f.record(commentary.KindQuestion, page, "", q)
}

func (f *fakeService) DefineWord(_ context.Context, page reader.Page, word string) (commentary.Record, error) {
	return f.record(commentary.KindDefinition, page, word, "")
}

func (f *fakeService) SaveAPIKey(_ context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is required")
	}
	f.key = key
	return nil
}

func (f *fakeService) ClearAPIKey(context.Context) error {
	f.key = ""
	return nil
}

func (f *fakeService) SetQuota(_ context.Context, raw string) (int, error) {
	if raw != "5" {
		return 0, app.ErrInvalidQuota
	}
	f.quota = 5
	return 5, nil
}

func (f *fakeService) ToggleTheme(context.Context) (string, error) {
	if f.theme == config.ThemeLight {
		f.theme = config.ThemeDark
	} else {
		f.theme = config.ThemeLight
	}
	return f.theme, nil
}

func (f *fakeService) AdjustFontSize(_ context.Context, delta int) (int, error) {
	f.fontSize += delta * config.FontSizeStep
	return f.fontSize, nil
}

func (f *fakeService) Prompt(_ context.Context, kind app.PromptKind) (string, error) {
	if p, ok := f.prompts[kind]; ok {
		return p, nil
	}
	return app.DefaultPrompt(kind), nil
}

func (f *fakeService) SavePrompt(_ context.Context, kind app.PromptKind, text string) error {
	f.prompts[kind] = text
	return nil
}

func (f *fakeService) CurrentPage() reader.Page { return f.pages[f.current] }
func (f *fakeService) TotalPages() int          { return len(f.pages) }
func (f *fakeService) Pages() []reader.Page     { return f.pages }

func (f *fakeService) NextPage() (bool, error) {
	if f.current == len(f.pages)-1 {
		return false, nil
	}
	f.current++
	f.selOK = false
	return true, nil
}

func (f *fakeService) PrevPage() (bool, error) {
	if f.current == 0 {
		return false, nil
	}
	f.current--
	f.selOK = false
	return true, nil
}

func (f *fakeService) JumpTo(n int) error {
	if n < 1 || n > len(f.pages) {
		return &reader.OutOfRangeError{Requested: n, Total: len(f.pages)}
	}
	f.current = n - 1
	return nil
}

func (f *fakeService) ReplacePages(pages []reader.Page) error {
	f.replaced = pages
	f.pages = pages
	f.current = 0
	return nil
}

func (f *fakeService) Select(text string, rng reader.Range) {
	f.selText, f.selRange, f.selOK = text, rng, true
}

func (f *fakeService) ClearSelection() { f.selOK = false }

func (f *fakeService) Selection() (string, reader.Range, bool) {
	return f.selText, f.selRange, f.selOK
}

func (f *fakeService) SelectionIsSingleWord() bool {
	return f.selOK && len(strings.Fields(f.selText)) == 1
}

func (f *fakeService) Records(page int) []commentary.Record {
	var out []commentary.Record
	for _, r := range f.records {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeService) AllRecords() []commentary.Record { return f.records }

func (f *fakeService) HasPageAnalysis(page int) bool {
	for _, r := range f.records {
		if r.Page == page && r.Kind == commentary.KindPage {
			return true
		}
	}
	return false
}

func (f *fakeService) Usage() app.Usage {
	return app.Usage{Calls: f.calls, Quota: f.quota, EstimatedCost: float64(f.calls) * config.CostPerCall}
}

func (f *fakeService) ResetPrompt(kind app.PromptKind) string { return app.DefaultPrompt(kind) }

func newTestModel(svc *fakeService) Model {
	m := NewModel(svc, Options{})
	m.renderMarkdown = view.PlainMarkdown
	m.copyFn = func(string) error { return nil }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m, cmd
}

// collect runs cmd and any batched commands, dropping those that do not
// return promptly such as status timers.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(t, c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func mustFind[T any](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	v, ok := find[T](msgs)
	if !ok {
		var zero T
		t.Fatalf("expected %T among %#v", zero, msgs)
	}
	return v
}

func TestModelView_ShowsPageAndFooter(t *testing.T) {
	m := newTestModel(newFakeService())

	out := m.View()
	for _, want := range []string{"The Odyssey", "Book One", "Page 1 of 3", "Sing to me", "calls 0/50", "Analyze Current Page"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, out)
		}
	}
}

func TestModelUpdate_PageNavigation(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("h"))
	if svc.current != 0 {
		t.Fatalf("previous on the first page should stay put, got index %d", svc.current)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, keys("l"))
	if svc.current != 2 {
		t.Fatalf("expected third page, got index %d", svc.current)
	}
	if !strings.Contains(m.View(), "Page 3 of 3") {
		t.Fatalf("expected page 3 in view, got:\n%s", m.View())
	}
}

func TestModelUpdate_AnalyzeCurrentPage(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	if len(m.pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(m.pending))
	}
	if !strings.Contains(m.View(), "Analyzing...") {
		t.Fatalf("expected pending card, got:\n%s", m.View())
	}

	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	if success.Request.Page.Number != 1 {
		t.Fatalf("expected request for page 1, got %d", success.Request.Page.Number)
	}
	m, _ = press(t, m, success)
	if len(m.pending) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(m.pending))
	}
	out := m.View()
	if !strings.Contains(out, "Page Analysis") || !strings.Contains(out, "The poet invokes the Muse.") {
		t.Fatalf("expected expanded analysis card, got:\n%s", out)
	}
	if !strings.Contains(out, "calls 1/50") {
		t.Fatalf("expected usage to count the call, got:\n%s", out)
	}
}

func TestModelUpdate_AnalysisLandsOnIssuingPage(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	m, _ = press(t, m, keys("l"), success)

	if !strings.Contains(m.status, "for page 1 ready") {
		t.Fatalf("expected off-page completion status, got %q", m.status)
	}
	if strings.Contains(m.View(), "The poet invokes the Muse.") {
		t.Fatal("page 1 commentary must not show on page 2")
	}
	m, _ = press(t, m, keys("h"))
	if !strings.Contains(m.View(), "The poet invokes the Muse.") {
		t.Fatalf("expected commentary back on page 1, got:\n%s", m.View())
	}
}

func TestModelUpdate_SelectAndExplain(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("v"), keys("l"), keys("l"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead {
		t.Fatalf("expected reading mode after confirming, got %v", m.mode)
	}
	if !svc.selOK || svc.selText != "Sing to me" || svc.selRange != (reader.Range{Start: 0, End: 3}) {
		t.Fatalf("unexpected selection: %q %+v %v", svc.selText, svc.selRange, svc.selOK)
	}
	if !strings.Contains(m.View(), `selected "Sing to me"`) {
		t.Fatalf("expected selection in footer, got:\n%s", m.View())
	}

	m, cmd := press(t, m, keys("s"))
	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	if success.Request.Kind != commentary.KindSelection || success.Request.Selection != "Sing to me" {
		t.Fatalf("unexpected request: %+v", success.Request)
	}
	m, _ = press(t, m, success)
	if !strings.Contains(m.View(), `Selected Text: "Sing to me"`) {
		t.Fatalf("expected selection card, got:\n%s", m.View())
	}
}

func TestModelUpdate_SelectionClearedAfterUse(t *testing.T) {
	for _, key := range []string{"s", "d"} {
		svc := newFakeService()
		m := newTestModel(svc)

		m, _ = press(t, m, keys("v"), tea.KeyMsg{Type: tea.KeyEnter})
		m, cmd := press(t, m, keys(key))
		if !svc.selOK {
			t.Fatalf("%s: selection should stay until the result arrives", key)
		}
		m, _ = press(t, m, mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd)))
		if svc.selOK {
			t.Fatalf("%s: selection still active after success: %q", key, svc.selText)
		}
		if strings.Contains(m.View(), `selected "Sing"`) {
			t.Fatalf("%s: footer still shows the used selection:\n%s", key, m.View())
		}
	}
}

func TestModelUpdate_NewerSelectionSurvivesEarlierResult(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("v"), tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := press(t, m, keys("s"))
	earlier := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))

	m, _ = press(t, m, keys("v"), keys("l"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, earlier)
	if !svc.selOK || svc.selText != "Sing to" {
		t.Fatalf("expected the newer selection to survive, got %q (active=%v)", svc.selText, svc.selOK)
	}
}

func TestModelUpdate_FailedSelectionKeepsSelection(t *testing.T) {
	svc := newFakeService()
	svc.err = &llm.Error{Kind: llm.KindRateLimited, Status: 429}
	m := newTestModel(svc)

	m, _ = press(t, m, keys("v"), tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := press(t, m, keys("s"))
	m, _ = press(t, m, mustFind[actions.AnalysisErrorMsg](t, collect(t, cmd)))
	if !svc.selOK {
		t.Fatal("a failed request must not consume the selection")
	}
}

func TestModelUpdate_SelectionShortcutsNeedSelection(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("s"))
	if cmd != nil || !errors.Is(m.err, app.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection without a command, got %v", m.err)
	}

	m, _ = press(t, m, keys("v"), keys("l"), tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = press(t, m, keys("d"))
	if cmd != nil || !errors.Is(m.err, app.ErrNotSingleWord) {
		t.Fatalf("expected ErrNotSingleWord, got %v", m.err)
	}

	m, _ = press(t, m, keys("x"))
	m, _ = press(t, m, keys("v"), tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = press(t, m, keys("d"))
	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	if success.Request.Kind != commentary.KindDefinition || success.Request.Selection != "Sing" {
		t.Fatalf("unexpected definition request: %+v", success.Request)
	}
}

func TestModelUpdate_SelectModeCancel(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("v"), keys("w"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeRead || svc.selOK {
		t.Fatalf("escape should leave select mode without selecting, mode=%v selected=%v", m.mode, svc.selOK)
	}
}

func TestModelUpdate_AskQuestion(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("i"), tea.KeyMsg{Type: tea.KeyEnter})
	if !errors.Is(m.err, app.ErrEmptyQuestion) || m.mode != modeQuestion {
		t.Fatalf("empty question should keep the prompt open, err=%v mode=%v", m.err, m.mode)
	}

	m, cmd := press(t, m, keys("Who is the man?"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead {
		t.Fatalf("expected reading mode after asking, got %v", m.mode)
	}
	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	if success.Request.Question != "Who is the man?" {
		t.Fatalf("unexpected question: %q", success.Request.Question)
	}
}

func TestModelUpdate_MissingKeyOpensPromptAndResumes(t *testing.T) {
	svc := newFakeService()
	svc.err = &llm.Error{Kind: llm.KindMissingKey}
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	failure := mustFind[actions.AnalysisErrorMsg](t, collect(t, cmd))
	m, _ = press(t, m, failure)
	if m.mode != modeKey {
		t.Fatalf("expected API key prompt, got mode %v", m.mode)
	}
	if len(m.failed) != 0 {
		t.Fatal("a missing key should not leave a failed card")
	}
	if !strings.Contains(m.View(), "Please enter your API key in settings") {
		t.Fatalf("expected missing key message, got:\n%s", m.View())
	}

	svc.err = nil
	m, cmd = press(t, m, keys("sk-ant-test"), tea.KeyMsg{Type: tea.KeyEnter})
	saved := mustFind[actions.APIKeySavedMsg](t, collect(t, cmd))
	if svc.key != "sk-ant-test" {
		t.Fatalf("expected key to be saved, got %q", svc.key)
	}
	m, cmd = press(t, m, saved)
	if m.mode != modeRead || len(m.pending) != 1 {
		t.Fatalf("expected the interrupted request to be reissued, mode=%v pending=%d", m.mode, len(m.pending))
	}
	mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
}

func TestModelUpdate_FailedRequestRetry(t *testing.T) {
	svc := newFakeService()
	svc.err = &llm.Error{Kind: llm.KindRateLimited, Status: 429}
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	m, _ = press(t, m, mustFind[actions.AnalysisErrorMsg](t, collect(t, cmd)))
	out := m.View()
	if !strings.Contains(out, "Rate limit exceeded.") || !strings.Contains(out, "press r to retry") {
		t.Fatalf("expected failed card with retry hint, got:\n%s", out)
	}

	svc.err = nil
	m, cmd = press(t, m, keys("r"))
	if len(m.failed) != 0 || len(m.pending) != 1 {
		t.Fatalf("expected retry to move the request back to pending, failed=%d pending=%d", len(m.failed), len(m.pending))
	}
	m, _ = press(t, m, mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd)))
	if strings.Contains(m.View(), "press r to retry") {
		t.Fatal("retried card should be gone")
	}
}

func TestModelUpdate_RetryUsesReloadedPage(t *testing.T) {
	svc := newFakeService()
	svc.err = &llm.Error{Kind: llm.KindNetworkFailure}
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	m, _ = press(t, m, mustFind[actions.AnalysisErrorMsg](t, collect(t, cmd)))

	pages := []reader.Page{{Number: 1, BookTitle: "Book One", BookNumber: "1", Text: "Tell me Muse of the man of many ways"}}
	m, _ = press(t, m, actions.ReloadSuccessMsg{Pages: pages})

	svc.err = nil
	m, cmd = press(t, m, keys("r"))
	success := mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd))
	if success.Request.Page.Text != pages[0].Text {
		t.Fatalf("retry sent stale page text %q", success.Request.Page.Text)
	}
}

func TestModelUpdate_QuotaExceededShowsMessageOnly(t *testing.T) {
	svc := newFakeService()
	svc.err = &llm.Error{Kind: llm.KindQuotaExceeded, Quota: 50}
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("a"))
	m, _ = press(t, m, mustFind[actions.AnalysisErrorMsg](t, collect(t, cmd)))
	if len(m.failed) != 0 {
		t.Fatal("quota errors should not add a retry card")
	}
	if !strings.Contains(m.View(), "API call limit (50 calls)") {
		t.Fatalf("expected quota message, got:\n%s", m.View())
	}
}

func TestModelUpdate_JumpToPage(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("g"), keys("9"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.err == nil || m.mode != modeJump {
		t.Fatalf("out-of-range jump should keep the prompt with an error, err=%v mode=%v", m.err, m.mode)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, keys("3"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead || svc.current != 2 {
		t.Fatalf("expected jump to page 3, mode=%v index=%d", m.mode, svc.current)
	}
}

func TestModelUpdate_ThemeAndFontSize(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("t"))
	m, _ = press(t, m, mustFind[actions.ThemeChangedMsg](t, collect(t, cmd)))
	if m.theme.Name != config.ThemeDark {
		t.Fatalf("expected dark theme, got %q", m.theme.Name)
	}

	m, cmd = press(t, m, keys("+"))
	m, _ = press(t, m, mustFind[actions.FontSizeChangedMsg](t, collect(t, cmd)))
	if m.fontSize != 18 {
		t.Fatalf("expected font size 18, got %d", m.fontSize)
	}
	if !strings.Contains(m.View(), "font 18") {
		t.Fatalf("expected font size in footer, got:\n%s", m.View())
	}
}

func TestModelUpdate_PromptEditor(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("o"), keys("1"))
	m, _ = press(t, m, mustFind[actions.PromptLoadedMsg](t, collect(t, cmd)))
	if m.mode != modeEditor || m.editor.Value() != config.DefaultPagePrompt {
		t.Fatalf("expected editor with default page prompt, mode=%v", m.mode)
	}

	m.editor.SetValue("Explain {TEXT}")
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = press(t, m, mustFind[actions.PromptSavedMsg](t, collect(t, cmd)))
	if svc.prompts[app.PromptPage] != "Explain {TEXT}" || m.mode != modeSettings {
		t.Fatalf("expected saved prompt and settings mode, got %q mode=%v", svc.prompts[app.PromptPage], m.mode)
	}

	m, cmd = press(t, m, keys("1"))
	m, _ = press(t, m, mustFind[actions.PromptLoadedMsg](t, collect(t, cmd)))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.editor.Value() != config.DefaultPagePrompt {
		t.Fatal("ctrl+r should restore the default text")
	}
	if svc.prompts[app.PromptPage] != "Explain {TEXT}" {
		t.Fatal("restoring the default must not save it")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc}, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeRead {
		t.Fatalf("expected reading mode, got %v", m.mode)
	}
}

func TestModelUpdate_QuotaSetting(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("o"), keys("m"), keys("x"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, mustFind[actions.SettingsErrorMsg](t, collect(t, cmd)))
	if !errors.Is(m.err, app.ErrInvalidQuota) || m.mode != modeQuota {
		t.Fatalf("expected invalid quota error with prompt open, err=%v mode=%v", m.err, m.mode)
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, keys("5"), tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = press(t, m, mustFind[actions.QuotaSavedMsg](t, collect(t, cmd)))
	if m.mode != modeSettings || m.quota != 5 {
		t.Fatalf("expected settings mode with quota 5, mode=%v quota=%d", m.mode, m.quota)
	}
	if !strings.Contains(m.View(), "API call limit: 5") {
		t.Fatalf("expected quota in settings view, got:\n%s", m.View())
	}
}

func TestModelUpdate_ContentsJump(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	m, _ = press(t, m, keys("c"))
	out := m.View()
	if !strings.Contains(out, "Book One") || !strings.Contains(out, "Book Two") || !strings.Contains(out, "p. 2") {
		t.Fatalf("expected contents with the current book expanded, got:\n%s", out)
	}
	// Rows: Book One, p. 1, p. 2, Book Two.
	m, _ = press(t, m, keys("j"), keys("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeRead || svc.current != 2 {
		t.Fatalf("expected jump to the first page of Book Two, mode=%v index=%d", m.mode, svc.current)
	}
}

func TestModelUpdate_SourceReload(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	pages := []reader.Page{{Number: 1, BookTitle: "Book One", BookNumber: "1", Text: "Tell me Muse"}}
	m, _ = press(t, m, actions.ReloadSuccessMsg{Pages: pages})
	if len(svc.replaced) != 1 {
		t.Fatalf("expected pages to be replaced, got %d", len(svc.replaced))
	}
	if !strings.Contains(m.status, "Source reloaded: 1 pages") {
		t.Fatalf("unexpected status: %q", m.status)
	}
}

func TestModelUpdate_WatchRearmsOnChange(t *testing.T) {
	changes := make(chan struct{}, 1)
	m := NewModel(newFakeService(), Options{Changes: changes, SourcePath: "/nonexistent/odyssey.txt"})

	changes <- struct{}{}
	msgs := collect(t, m.Init())
	mustFind[actions.SourceChangedMsg](t, msgs)

	_, cmd := press(t, m, actions.SourceChangedMsg{})
	if _, ok := find[actions.ReloadErrorMsg](collect(t, cmd)); !ok {
		t.Fatal("expected the reload of a missing source to fail")
	}
}

func TestModelUpdate_ExportAndCopy(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)
	m.exportDir = t.TempDir()
	m.nowFn = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	var copied string
	m.copyFn = func(s string) error { copied = s; return nil }

	m, cmd := press(t, m, keys("e"))
	if cmd != nil || m.status != "No commentary to export yet" {
		t.Fatalf("expected nothing to export, status=%q", m.status)
	}

	m, cmd = press(t, m, keys("a"))
	m, _ = press(t, m, mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd)))

	_, cmd = press(t, m, keys("y"))
	mustFind[actions.CopySuccessMsg](t, collect(t, cmd))
	if copied != svc.response {
		t.Fatalf("expected focused card to be copied, got %q", copied)
	}

	_, cmd = press(t, m, keys("e"))
	exported := mustFind[actions.ExportSuccessMsg](t, collect(t, cmd))
	if exported.Records != 1 {
		t.Fatalf("expected one exported record, got %d", exported.Records)
	}
	data, err := os.ReadFile(exported.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "The poet invokes the Muse.") {
		t.Fatalf("unexpected export contents:\n%s", data)
	}
}

func TestModelUpdate_CardFocusAndCollapse(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(svc)

	for i := 0; i < 2; i++ {
		var cmd tea.Cmd
		m, cmd = press(t, m, keys("a"))
		m, _ = press(t, m, mustFind[actions.AnalysisSuccessMsg](t, collect(t, cmd)))
	}
	cards := m.cards()
	if len(cards) != 2 || !cards[1].Focused {
		t.Fatalf("expected the newest of two cards focused, got %+v", cards)
	}

	m, _ = press(t, m, keys("["), tea.KeyMsg{Type: tea.KeyTab})
	cards = m.cards()
	if !cards[0].Focused || cards[0].Expanded {
		t.Fatalf("expected first card focused and collapsed, got %+v", cards[0])
	}
}

func TestNewModel_PromptsForMissingKey(t *testing.T) {
	m := NewModel(newFakeService(), Options{NeedsKey: true})
	if m.mode != modeKey {
		t.Fatalf("expected key prompt on startup, got %v", m.mode)
	}
	out := m.View()
	if !strings.Contains(out, "Anthropic API key") || !strings.Contains(out, "Please enter your API key in settings") {
		t.Fatalf("expected key prompt in view, got:\n%s", out)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeRead {
		t.Fatalf("escape should close the prompt, got %v", m.mode)
	}
}

func TestModelUpdate_ClearKeyReopensPrompt(t *testing.T) {
	svc := newFakeService()
	svc.key = "sk-ant-stored"
	m := newTestModel(svc)

	m, cmd := press(t, m, keys("o"), tea.KeyMsg{Type: tea.KeyCtrlK})
	m, _ = press(t, m, mustFind[actions.APIKeyClearedMsg](t, collect(t, cmd)))
	if svc.key != "" {
		t.Fatalf("expected key to be cleared, got %q", svc.key)
	}
	if m.mode != modeKey {
		t.Fatalf("expected key prompt after clearing, got mode %v", m.mode)
	}
	if !strings.Contains(m.View(), "Anthropic API key") {
		t.Fatalf("expected key prompt in view, got:\n%s", m.View())
	}
}

func TestModelUpdate_ClearKeyWithSeedKeepsSettings(t *testing.T) {
	svc := newFakeService()
	m := NewModel(svc, Options{SeedKey: true})
	m.renderMarkdown = view.PlainMarkdown
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := press(t, m, keys("o"), tea.KeyMsg{Type: tea.KeyCtrlK})
	m, _ = press(t, m, mustFind[actions.APIKeyClearedMsg](t, collect(t, cmd)))
	if m.mode != modeSettings || m.status != "API key cleared" {
		t.Fatalf("expected settings to stay open with the env key as fallback, mode=%v status=%q", m.mode, m.status)
	}
}

func TestModelUpdate_StaleStatusClearIgnored(t *testing.T) {
	m := newTestModel(newFakeService())
	m.flash("first")
	m.flash("second")

	m, _ = press(t, m, clearStatusMsg{id: 1})
	if m.status != "second" {
		t.Fatalf("stale clear should not remove the newer status, got %q", m.status)
	}
	m, _ = press(t, m, clearStatusMsg{id: 2})
	if m.status != "" {
		t.Fatalf("expected status cleared, got %q", m.status)
	}
}

func TestModelUpdate_HelpToggle(t *testing.T) {
	m := newTestModel(newFakeService())

	m, _ = press(t, m, keys("?"))
	if !strings.Contains(m.View(), "analyze current page") {
		t.Fatalf("expected help view, got:\n%s", m.View())
	}
	m, _ = press(t, m, keys("?"))
	if m.showHelp {
		t.Fatal("expected help closed")
	}
	_, cmd := press(t, m, keys("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}
