// Package llm sends single-turn prompts to the Anthropic Messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glabrego/odyssey-reader/internal/config"
)

const maxErrorBody = 64 << 10

// KeyFunc returns the current API key, or "" when none is configured.
type KeyFunc func(ctx context.Context) (string, error)

type ClientConfig struct {
	Endpoint  string
	Model     string
	MaxTokens int
}

type Client struct {
	cfg    ClientConfig
	keys   KeyFunc
	meter  *Meter
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg ClientConfig, keys KeyFunc, meter *Meter, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.APIEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = config.Model
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = config.MaxTokens
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = NewMeter(config.DefaultMaxAPICalls)
	}
	return &Client{cfg: cfg, keys: keys, meter: meter, http: httpClient, logger: logger}
}

func (c *Client) Meter() *Meter {
	return c.meter
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send issues one request. The key and quota are checked before any network
// activity; the call counter moves only when a response is decoded.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	key := ""
	if c.keys != nil {
		k, err := c.keys(ctx)
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		key = strings.TrimSpace(k)
	}
	if key == "" {
		return "", &Error{Kind: KindMissingKey}
	}
	if !c.meter.Reserve() {
		return "", &Error{Kind: KindQuotaExceeded, Quota: c.meter.Quota()}
	}

	text, err := c.do(ctx, key, prompt)
	c.meter.Release(err == nil)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) do(ctx context.Context, key, prompt string) (string, error) {
	body, err := json.Marshal(messageRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &Error{Kind: KindAPIFailure, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindAPIFailure, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", config.APIVersion)

	start := time.Now()
	c.logger.Debug("sending messages request",
		zap.String("endpoint", c.cfg.Endpoint),
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_chars", len([]rune(prompt))),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("messages request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return "", &Error{Kind: KindNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Info("messages response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classify(resp)
	}

	var decoded messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &Error{Kind: KindAPIFailure, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}

	parts := make([]string, 0, len(decoded.Content))
	for _, block := range decoded.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// classify maps a non-2xx response to an error kind by status code.
func classify(resp *http.Response) *Error {
	message := ""
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil {
		message = strings.TrimSpace(parsed.Error.Message)
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("API request failed (%d)", resp.StatusCode)
	}

	kind := KindAPIFailure
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = KindAuthFailure
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Status: resp.StatusCode, Message: message}
}
