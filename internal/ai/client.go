// Package ai calls the external completion provider for AI-mode replies.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/config"
	"github.com/botpanel/telegram-bot-service/internal/store"
)

const (
	requestTimeout = 30 * time.Second
	debounceWindow = 5 * time.Second
	debounceCap    = 1000
	prefixRunes    = 50

	defaultMaxTokens = 500
	temperature      = 0.7
	topP             = 0.9
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client generates AI replies through an OpenAI-compatible chat-completions
// endpoint, deduplicating near-simultaneous repeat calls. Telegram is known
// to deliver the same update twice; the debounce keeps that from turning
// into duplicate paid completions.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	lastCall map[string]time.Time
	order    []string
	now      func() time.Time
}

func NewClient(log *slog.Logger, cfg config.OpenAIConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	scoped := log.With(slog.String("service", "ai"))
	if strings.TrimSpace(cfg.APIKey) == "" {
		scoped.Warn("no completion API key configured, AI replies disabled")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     scoped,
		lastCall:   map[string]time.Time{},
		now:        time.Now,
	}
}

// Generate returns a reply for text, or "" when the call was debounced,
// the provider failed, or no API key is configured. The only non-nil error
// is context cancellation; callers treat "" as "no reply".
func (c *Client) Generate(ctx context.Context, text string, bot store.Bot, userID, chatID string) (string, error) {
	if c.apiKey == "" {
		return "", nil
	}
	if c.debounced(chatID, userID, text) {
		c.logger.Debug("duplicate completion call suppressed",
			slog.String("bot_id", bot.ID), slog.String("chat_id", chatID))
		return "", nil
	}

	maxTokens := bot.AI.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	payload := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildSystemPrompt(bot)},
			{Role: "user", Content: text},
		},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal completion request failed", slog.Any("error", err))
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("build completion request failed", slog.Any("error", err))
		return "", nil
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Error("completion call failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("completion call rejected",
			slog.String("bot_id", bot.ID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return "", nil
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Error("decode completion response failed", slog.Any("error", err))
		return "", nil
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// debounced records the call keyed by (chat, user, text prefix) and reports
// whether an identical call happened within the window.
func (c *Client) debounced(chatID, userID, text string) bool {
	key := debounceKey(chatID, userID, text)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastCall[key]; ok && now.Sub(last) < debounceWindow {
		return true
	}
	if _, ok := c.lastCall[key]; !ok {
		c.order = append(c.order, key)
	}
	c.lastCall[key] = now

	for len(c.lastCall) > debounceCap && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.lastCall, oldest)
	}
	return false
}

func debounceKey(chatID, userID, text string) string {
	runes := []rune(text)
	if len(runes) > prefixRunes {
		runes = runes[:prefixRunes]
	}
	return fmt.Sprintf("%s|%s|%s", chatID, userID, string(runes))
}
