package llm

import (
	"context"
	"strings"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const (
	jsonSystemPrompt = "You output strict JSON only."

	jsonTemperature = 0.2
	chatTemperature = 0.7

	historyTurnLimit    = 8
	historyContentChars = 400
)

// Backoff is the retry policy applied to JSON-mode requests: at most
// MaxAttempts sequential attempts with a fixed Delay between them.
type Backoff struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultBackoff matches the production retry budget.
var DefaultBackoff = Backoff{MaxAttempts: 2, Delay: 600 * time.Millisecond}

// Client implements domain.ModelClient on top of a langchaingo model.
type Client struct {
	model   llms.Model
	images  *ImageGenerator
	backoff Backoff
	timeout time.Duration
	sleep   func(time.Duration)
}

// NewClient wires a model client. images may be nil, in which case image
// generation always degrades to an empty URL.
func NewClient(model llms.Model, images *ImageGenerator, timeout time.Duration, backoff Backoff) *Client {
	if backoff.MaxAttempts < 1 {
		backoff = DefaultBackoff
	}
	return &Client{
		model:   model,
		images:  images,
		backoff: backoff,
		timeout: timeout,
		sleep:   time.Sleep,
	}
}

// WithSleep replaces the inter-attempt sleep, for deterministic tests.
func (c *Client) WithSleep(sleep func(time.Duration)) *Client {
	c.sleep = sleep
	return c
}

// RequestJSON sends a JSON-mode prompt and parses the reply. A transport
// failure, a non-2xx reply, or an unparseable body all count as one failed
// attempt against the retry budget.
func (c *Client) RequestJSON(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, jsonSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 1; attempt <= c.backoff.MaxAttempts; attempt++ {
		parsed, err := c.requestJSONOnce(ctx, messages, maxTokens)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
		logger.Get().Warn("model JSON request attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < c.backoff.MaxAttempts {
			c.sleep(c.backoff.Delay)
		}
	}
	return nil, lastErr
}

func (c *Client) requestJSONOnce(ctx context.Context, messages []llms.MessageContent, maxTokens int) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(attemptCtx, messages,
		llms.WithTemperature(jsonTemperature),
		llms.WithMaxTokens(maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyModelReply
	}
	return ParseModelJSON(resp.Choices[0].Content)
}

// Chat sends a plain completion with up to the last 8 history turns, each
// clamped to 400 characters.
func (c *Client) Chat(ctx context.Context, system string, history []domain.ChatTurn, message string, maxTokens int) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))

	if len(history) > historyTurnLimit {
		history = history[len(history)-historyTurnLimit:]
	}
	for _, turn := range history {
		content := turn.Content
		if runes := []rune(content); len(runes) > historyContentChars {
			content = string(runes[:historyContentChars])
		}
		if content == "" {
			continue
		}
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(attemptCtx, messages,
		llms.WithTemperature(chatTemperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyModelReply
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// GenerateImage is a one-shot call with no retry. Every failure path
// returns "" so callers can fall through to the next image source.
func (c *Client) GenerateImage(ctx context.Context, prompt, storagePath string) string {
	if c.images == nil {
		return ""
	}
	return c.images.Generate(ctx, prompt, storagePath)
}
