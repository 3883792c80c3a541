package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

const AppName = "odyssey-reader"

const defaultHTTPTimeout = 2 * time.Minute

// Config holds runtime settings for the reader.
type Config struct {
	SourcePath   string
	DBPath       string
	LogPath      string
	ExportDir    string
	APIURL       string
	Model        string
	MaxTokens    int
	WordsPerPage int
	HTTPTimeout  time.Duration
	// SeedAPIKey is only used when no key has been stored yet.
	SeedAPIKey string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		SourcePath: os.Getenv("ODYSSEY_SOURCE"),
		DBPath:     os.Getenv("ODYSSEY_DB_PATH"),
		LogPath:    os.Getenv("ODYSSEY_LOG_PATH"),
		ExportDir:  os.Getenv("ODYSSEY_EXPORT_DIR"),
		APIURL:     os.Getenv("ODYSSEY_API_URL"),
		Model:      os.Getenv("ODYSSEY_MODEL"),
		SeedAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = DefaultExportDir()
	}
	if cfg.APIURL == "" {
		cfg.APIURL = APIEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = Model
	}

	var err error
	if cfg.MaxTokens, err = intFromEnv("ODYSSEY_MAX_TOKENS", MaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.WordsPerPage, err = intFromEnv("ODYSSEY_WORDS_PER_PAGE", WordsPerPage); err != nil {
		return Config{}, err
	}

	cfg.HTTPTimeout = defaultHTTPTimeout
	if raw := os.Getenv("ODYSSEY_HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("ODYSSEY_HTTP_TIMEOUT must be a duration: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if c.APIURL == "" {
		return errors.New("APIURL is required")
	}
	parsed, err := url.Parse(c.APIURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("APIURL must be an http(s) URL: %s", c.APIURL)
	}
	if c.Model == "" {
		return errors.New("Model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("MaxTokens must be positive: %d", c.MaxTokens)
	}
	if c.WordsPerPage < 1 {
		return fmt.Errorf("WordsPerPage must be positive: %d", c.WordsPerPage)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTPTimeout must not be negative: %s", c.HTTPTimeout)
	}
	return nil
}

// RequireSource reports a readable error for commands that need a book.
func (c Config) RequireSource() error {
	if c.SourcePath == "" {
		return errors.New("ODYSSEY_SOURCE (or --source) is required")
	}
	return nil
}

// DefaultDBPath returns $XDG_DATA_HOME/odyssey-reader/odyssey.db.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, "odyssey.db")
}

// DefaultLogPath returns $XDG_STATE_HOME/odyssey-reader/odyssey.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, "odyssey.log")
}

// DefaultExportDir returns the user's documents directory plus odyssey-reader.
func DefaultExportDir() string {
	return filepath.Join(xdg.UserDirs.Documents, AppName)
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, raw)
	}
	return n, nil
}
