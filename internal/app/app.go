package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/commentary"
	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/llm"
	"github.com/glabrego/odyssey-reader/internal/reader"
	"github.com/glabrego/odyssey-reader/internal/settings"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoSelection   = errors.New("no text selected")
	ErrNotSingleWord = errors.New("select a single word to look it up")
	ErrInvalidQuota  = errors.New("API call limit must be a positive whole number")
)

// Sender is the API client used for analysis requests.
type Sender interface {
	Send(ctx context.Context, prompt string) (string, error)
}

type PromptKind string

const (
	PromptPage      PromptKind = "page"
	PromptSelection PromptKind = "selection"
)

func (k PromptKind) key() string {
	if k == PromptSelection {
		return config.KeySelectionPrompt
	}
	return config.KeyPagePrompt
}

// DefaultPrompt returns the built-in template for kind.
func DefaultPrompt(kind PromptKind) string {
	if kind == PromptSelection {
		return config.DefaultSelectionPrompt
	}
	return config.DefaultPagePrompt
}

type Usage struct {
	Calls int
	Quota int
	// InFlight counts requests holding a quota slot that have not finished.
	InFlight      int
	EstimatedCost float64
	NearLimit     bool
}

type Preferences struct {
	Theme    string
	FontSize int
}

// Service owns one reading session. Navigation and selection methods are
// meant for the UI goroutine; analysis methods may run concurrently and
// take the page they were issued for.
type Service struct {
	settings  *settings.Settings
	sender    Sender
	meter     *llm.Meter
	store     *commentary.Store
	pages     *reader.Paginator
	selection reader.Selection
	logger    *zap.Logger
}

func NewService(st *settings.Settings, sender Sender, meter *llm.Meter, store *commentary.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = commentary.NewStore()
	}
	return &Service{settings: st, sender: sender, meter: meter, store: store, logger: logger}
}

// Open paginates the work and restores the saved reading position.
func (s *Service) Open(ctx context.Context, pages []reader.Page) error {
	p, err := reader.NewPaginator(pages, s.savePosition)
	if err != nil {
		return err
	}
	saved, err := s.settings.ReadingPosition(ctx)
	if err != nil {
		s.logger.Warn("could not read saved position", zap.Error(err))
	}
	p.Restore(saved)
	s.pages = p
	return nil
}

func (s *Service) savePosition(page int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.settings.SaveReadingPosition(ctx, page)
}

// ReplacePages swaps in a re-paginated work, keeping the current page in range.
func (s *Service) ReplacePages(pages []reader.Page) error {
	if err := s.pages.Replace(pages); err != nil {
		return err
	}
	s.selection.Clear()
	return nil
}

func (s *Service) CurrentPage() reader.Page {
	return s.pages.Current()
}

func (s *Service) TotalPages() int {
	return s.pages.Total()
}

func (s *Service) Pages() []reader.Page {
	return s.pages.Pages()
}

func (s *Service) NextPage() (bool, error) {
	moved, err := s.pages.Next()
	if moved {
		s.selection.Clear()
	}
	return moved, err
}

func (s *Service) PrevPage() (bool, error) {
	moved, err := s.pages.Prev()
	if moved {
		s.selection.Clear()
	}
	return moved, err
}

func (s *Service) JumpTo(n int) error {
	before := s.pages.CurrentNumber()
	err := s.pages.JumpTo(n)
	var rangeErr *reader.OutOfRangeError
	if errors.As(err, &rangeErr) {
		return err
	}
	if s.pages.CurrentNumber() != before {
		s.selection.Clear()
	}
	return err
}

func (s *Service) Select(text string, rng reader.Range) {
	s.selection.Capture(text, rng)
}

func (s *Service) ClearSelection() {
	s.selection.Clear()
}

func (s *Service) Selection() (string, reader.Range, bool) {
	text, ok := s.selection.Text()
	rng, _ := s.selection.Range()
	return text, rng, ok
}

func (s *Service) SelectionIsSingleWord() bool {
	return s.selection.IsSingleWord()
}

func (s *Service) AnalyzePage(ctx context.Context, page reader.Page) (commentary.Record, error) {
	template, err := s.settings.PagePrompt(ctx)
	if err != nil {
		s.logger.Warn("using default page prompt", zap.Error(err))
	}
	response, err := s.send(ctx, commentary.PagePrompt(template, page), commentary.KindPage, page.Number)
	if err != nil {
		return commentary.Record{}, err
	}
	rec := commentary.NewRecord(commentary.KindPage, page.Number, response)
	s.store.Append(rec)
	return rec, nil
}

func (s *Service) AnalyzeSelection(ctx context.Context, page reader.Page, selection string) (commentary.Record, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return commentary.Record{}, ErrNoSelection
	}
	template, err := s.settings.SelectionPrompt(ctx)
	if err != nil {
		s.logger.Warn("using default selection prompt", zap.Error(err))
	}
	response, err := s.send(ctx, commentary.SelectionPrompt(template, page, selection), commentary.KindSelection, page.Number)
	if err != nil {
		return commentary.Record{}, err
	}
	rec := commentary.NewRecord(commentary.KindSelection, page.Number, response)
	rec.Selection = selection
	s.store.Append(rec)
	return rec, nil
}

func (s *Service) AskQuestion(ctx context.Context, page reader.Page, question string) (commentary.Record, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return commentary.Record{}, ErrEmptyQuestion
	}
	response, err := s.send(ctx, commentary.QuestionPrompt(page, question), commentary.KindQuestion, page.Number)
	if err != nil {
		return commentary.Record{}, err
	}
	rec := commentary.NewRecord(commentary.KindQuestion, page.Number, response)
	rec.Question = question
	s.store.Append(rec)
	return rec, nil
}

func (s *Service) DefineWord(ctx context.Context, page reader.Page, word string) (commentary.Record, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return commentary.Record{}, ErrNoSelection
	}
	if len(strings.Fields(word)) != 1 {
		return commentary.Record{}, ErrNotSingleWord
	}
	response, err := s.send(ctx, commentary.DefinitionPrompt(word), commentary.KindDefinition, page.Number)
	if err != nil {
		return commentary.Record{}, err
	}
	rec := commentary.NewRecord(commentary.KindDefinition, page.Number, response)
	rec.Selection = word
	s.store.Append(rec)
	return rec, nil
}

func (s *Service) send(ctx context.Context, prompt string, kind commentary.Kind, page int) (string, error) {
	response, err := s.sender.Send(ctx, prompt)
	if err != nil {
		s.logger.Info("analysis failed",
			zap.String("kind", string(kind)),
			zap.Int("page", page),
			zap.Stringer("error_kind", llm.Kind(err)),
			zap.Error(err),
		)
		return "", err
	}
	s.logger.Debug("analysis stored", zap.String("kind", string(kind)), zap.Int("page", page))
	return response, nil
}

func (s *Service) Records(page int) []commentary.Record {
	return s.store.ForPage(page)
}

func (s *Service) AllRecords() []commentary.Record {
	return s.store.All()
}

func (s *Service) HasPageAnalysis(page int) bool {
	return s.store.HasPageAnalysis(page)
}

func (s *Service) Usage() Usage {
	calls := s.meter.Calls()
	quota := s.meter.Quota()
	return Usage{
		Calls:         calls,
		Quota:         quota,
		InFlight:      s.meter.InFlight(),
		EstimatedCost: float64(calls) * config.CostPerCall,
		NearLimit:     float64(calls) >= float64(quota)*config.QuotaWarnRatio,
	}
}

func (s *Service) HasAPIKey(ctx context.Context) bool {
	_, ok, err := s.settings.APIKey(ctx)
	return err == nil && ok
}

func (s *Service) SaveAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := settings.ValidateAPIKey(key); err != nil {
		return err
	}
	return s.settings.Set(ctx, config.KeyAPIKey, key)
}

func (s *Service) ClearAPIKey(ctx context.Context) error {
	return s.settings.Delete(ctx, config.KeyAPIKey)
}

// SetQuota persists a new call limit and applies it to this session.
func (s *Service) SetQuota(ctx context.Context, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, ErrInvalidQuota
	}
	if err := s.settings.Set(ctx, config.KeyMaxAPICalls, strconv.Itoa(n)); err != nil {
		return 0, err
	}
	s.meter.SetQuota(n)
	return n, nil
}

func (s *Service) LoadPreferences(ctx context.Context) (Preferences, error) {
	theme, err := s.settings.Theme(ctx)
	if err != nil {
		return Preferences{Theme: config.DefaultTheme, FontSize: config.DefaultFontSize}, fmt.Errorf("load theme: %w", err)
	}
	size, err := s.settings.FontSize(ctx)
	if err != nil {
		return Preferences{Theme: theme, FontSize: config.DefaultFontSize}, fmt.Errorf("load font size: %w", err)
	}
	return Preferences{Theme: theme, FontSize: size}, nil
}

func (s *Service) Prompt(ctx context.Context, kind PromptKind) (string, error) {
	return s.settings.Get(ctx, kind.key(), DefaultPrompt(kind))
}

func (s *Service) SavePrompt(ctx context.Context, kind PromptKind, text string) error {
	return s.settings.Set(ctx, kind.key(), text)
}

// KeySource resolves the API key from settings, falling back to seed (usually
// ANTHROPIC_API_KEY) when nothing is stored.
func KeySource(st *settings.Settings, seed string) llm.KeyFunc {
	return func(ctx context.Context) (string, error) {
		key, ok, err := st.APIKey(ctx)
		if err != nil {
			return "", err
		}
		if ok {
			return key, nil
		}
		return strings.TrimSpace(seed), nil
	}
}

// ToggleTheme flips between light and dark and persists the result.
func (s *Service) ToggleTheme(ctx context.Context) (string, error) {
	current, err := s.settings.Theme(ctx)
	if err != nil {
		s.logger.Warn("could not read theme", zap.Error(err))
	}
	next := config.ThemeDark
	if current == config.ThemeDark {
		next = config.ThemeLight
	}
	if err := s.settings.Set(ctx, config.KeyTheme, next); err != nil {
		return current, err
	}
	return next, nil
}

// AdjustFontSize moves the font size by delta steps, clamped to the supported range.
func (s *Service) AdjustFontSize(ctx context.Context, delta int) (int, error) {
	current, err := s.settings.FontSize(ctx)
	if err != nil {
		s.logger.Warn("could not read font size", zap.Error(err))
	}
	next := settings.ClampFontSize(current + delta*config.FontSizeStep)
	if next == current {
		return current, nil
	}
	if err := s.settings.Set(ctx, config.KeyFontSize, strconv.Itoa(next)); err != nil {
		return current, err
	}
	return next, nil
}

// ResetPrompt returns the built-in template. Nothing is saved until SavePrompt.
func (s *Service) ResetPrompt(kind PromptKind) string {
	return DefaultPrompt(kind)
}
