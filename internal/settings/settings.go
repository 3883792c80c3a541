// Package settings resolves persisted user overrides against the fixed defaults.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/storage"
)

type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

type Settings struct {
	store Store
}

func New(store Store) *Settings {
	return &Settings{store: store}
}

// Get returns the stored override for key, or def when none is stored.
func (s *Settings) Get(ctx context.Context, key, def string) (string, error) {
	value, err := s.store.GetSetting(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	if err := s.store.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (s *Settings) Delete(ctx context.Context, key string) error {
	if err := s.store.DeleteSetting(ctx, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// APIKey returns the stored key; ok is false when none is stored.
func (s *Settings) APIKey(ctx context.Context) (key string, ok bool, err error) {
	key, err = s.Get(ctx, config.KeyAPIKey, "")
	if err != nil {
		return "", false, err
	}
	key = strings.TrimSpace(key)
	return key, key != "", nil
}

// ReadingPosition returns the last persisted page, or 1.
func (s *Settings) ReadingPosition(ctx context.Context) (int, error) {
	return s.intValue(ctx, config.KeyReadingPosition, 1, func(n int) bool { return n >= 1 })
}

func (s *Settings) SaveReadingPosition(ctx context.Context, page int) error {
	return s.Set(ctx, config.KeyReadingPosition, strconv.Itoa(page))
}

// Theme returns "light" or "dark"; anything else reads as the default.
func (s *Settings) Theme(ctx context.Context) (string, error) {
	raw, err := s.Get(ctx, config.KeyTheme, config.DefaultTheme)
	if err != nil {
		return config.DefaultTheme, err
	}
	switch raw {
	case config.ThemeLight, config.ThemeDark:
		return raw, nil
	default:
		return config.DefaultTheme, nil
	}
}

func (s *Settings) FontSize(ctx context.Context) (int, error) {
	n, err := s.intValue(ctx, config.KeyFontSize, config.DefaultFontSize, func(int) bool { return true })
	return ClampFontSize(n), err
}

// MaxAPICalls returns the session quota; values below 1 fall back to the default.
func (s *Settings) MaxAPICalls(ctx context.Context) (int, error) {
	return s.intValue(ctx, config.KeyMaxAPICalls, config.DefaultMaxAPICalls, func(n int) bool { return n >= 1 })
}

func (s *Settings) PagePrompt(ctx context.Context) (string, error) {
	return s.Get(ctx, config.KeyPagePrompt, config.DefaultPagePrompt)
}

func (s *Settings) SelectionPrompt(ctx context.Context) (string, error) {
	return s.Get(ctx, config.KeySelectionPrompt, config.DefaultSelectionPrompt)
}

func (s *Settings) intValue(ctx context.Context, key string, def int, valid func(int) bool) (int, error) {
	raw, err := s.Get(ctx, key, "")
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil || !valid(n) {
		return def, nil
	}
	return n, nil
}

// ClampFontSize pins n into the supported range.
func ClampFontSize(n int) int {
	if n < config.MinFontSize {
		return config.MinFontSize
	}
	if n > config.MaxFontSize {
		return config.MaxFontSize
	}
	return n
}

// ValidateAPIKey checks the format of a key before it is stored.
func ValidateAPIKey(key string) error {
	if !strings.HasPrefix(strings.TrimSpace(key), config.APIKeyPrefix) {
		return fmt.Errorf("invalid API key format. It should start with %q", config.APIKeyPrefix)
	}
	return nil
}
