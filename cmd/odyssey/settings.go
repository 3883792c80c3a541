package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glabrego/odyssey-reader/internal/config"
	"github.com/glabrego/odyssey-reader/internal/settings"
	"github.com/glabrego/odyssey-reader/internal/storage"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change stored settings",
		Long: "Settings are stored in the SQLite database at ODYSSEY_DB_PATH.\n\nKeys:\n  " +
			strings.Join(config.Keys, "\n  "),
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every key with its stored value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(cmd, opts, func(repo *storage.Repository) error {
					return listSettings(cmd, repo)
				})
			},
		},
		&cobra.Command{
			Use:       "get KEY",
			Short:     "Print a stored value, or its default",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := knownKey(args[0]); err != nil {
					return err
				}
				return withRepository(cmd, opts, func(repo *storage.Repository) error {
					value, err := settings.New(repo).Get(cmd.Context(), args[0], defaultValue(args[0]))
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "set KEY VALUE",
			Short:     "Store a value",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.Keys,
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := args[0], strings.TrimSpace(args[1])
				if err := validateSetting(key, value); err != nil {
					return err
				}
				return withRepository(cmd, opts, func(repo *storage.Repository) error {
					if err := settings.New(repo).Set(cmd.Context(), key, value); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", key)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "unset KEY",
			Short:     "Remove a stored value so the default applies",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := knownKey(args[0]); err != nil {
					return err
				}
				return withRepository(cmd, opts, func(repo *storage.Repository) error {
					if err := settings.New(repo).Delete(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withRepository(cmd *cobra.Command, opts *rootOptions, fn func(*storage.Repository) error) error {
	repo, err := opts.openRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}

func listSettings(cmd *cobra.Command, repo *storage.Repository) error {
	stored, err := repo.ListSettings(cmd.Context())
	if err != nil {
		return err
	}
	byKey := make(map[string]storage.Setting, len(stored))
	for _, s := range stored {
		byKey[s.Key] = s
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Key", "Value", "Updated")
	for _, key := range config.Keys {
		s, ok := byKey[key]
		if !ok {
			t.Row(key, "(default)", "")
			continue
		}
		t.Row(key, displayValue(key, s.Value), humanize.Time(s.UpdatedAt))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

// displayValue masks the API key and shortens prompts to their first line.
func displayValue(key, value string) string {
	switch key {
	case config.KeyAPIKey:
		return maskKey(value)
	case config.KeyPagePrompt, config.KeySelectionPrompt:
		line, _, more := strings.Cut(value, "\n")
		if more || len(line) > 48 {
			return truncate(line, 48) + "…"
		}
		return line
	}
	return value
}

func maskKey(key string) string {
	if len(key) <= len(config.APIKeyPrefix)+4 {
		return strings.Repeat("•", len(key))
	}
	return key[:len(config.APIKeyPrefix)] + strings.Repeat("•", 8) + key[len(key)-4:]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func knownKey(key string) error {
	if !slices.Contains(config.Keys, key) {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(config.Keys, ", "))
	}
	return nil
}

func defaultValue(key string) string {
	switch key {
	case config.KeyReadingPosition:
		return "1"
	case config.KeyTheme:
		return config.DefaultTheme
	case config.KeyFontSize:
		return strconv.Itoa(config.DefaultFontSize)
	case config.KeyMaxAPICalls:
		return strconv.Itoa(config.DefaultMaxAPICalls)
	case config.KeyPagePrompt:
		return config.DefaultPagePrompt
	case config.KeySelectionPrompt:
		return config.DefaultSelectionPrompt
	}
	return ""
}

func validateSetting(key, value string) error {
	if err := knownKey(key); err != nil {
		return err
	}
	switch key {
	case config.KeyAPIKey:
		return settings.ValidateAPIKey(value)
	case config.KeyTheme:
		if value != config.ThemeLight && value != config.ThemeDark {
			return fmt.Errorf("theme must be %q or %q", config.ThemeLight, config.ThemeDark)
		}
	case config.KeyFontSize:
		n, err := strconv.Atoi(value)
		if err != nil || n < config.MinFontSize || n > config.MaxFontSize {
			return fmt.Errorf("font size must be between %d and %d", config.MinFontSize, config.MaxFontSize)
		}
	case config.KeyMaxAPICalls, config.KeyReadingPosition:
		if n, err := strconv.Atoi(value); err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
	case config.KeyPagePrompt, config.KeySelectionPrompt:
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	return nil
}
