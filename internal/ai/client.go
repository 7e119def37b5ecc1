package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
)

// Retry configuration for the upstream call. Fixed constants: only
// rate-limit responses are retried, everything else propagates immediately.
const (
	maxRetries        = 3
	initialDelay      = 1 * time.Second
	maxDelay          = 8 * time.Second
	backoffMultiplier = 2.0

	maxResponseTokens = 2048
)

// Result is the outcome of one successful generation call.
type Result struct {
	Text       string
	Model      string
	TokensUsed int64
	Latency    time.Duration
}

// Client wraps the Anthropic API with bounded exponential-backoff retry on
// rate limiting.
type Client struct {
	newMessage func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
	logger     *log.Logger

	// Retained as fields so tests can shrink the delays; production code
	// always uses the package constants.
	maxRetries   uint64
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

// NewClient creates a Client backed by the real Anthropic API. The timeout
// bounds each individual upstream request, not the whole retry sequence.
func NewClient(apiKey string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	sdk := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)

	return &Client{
		newMessage: func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
			return sdk.Messages.New(ctx, params)
		},
		logger:       logger,
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		multiplier:   backoffMultiplier,
	}
}

const planSystemPrompt = `You are a personal productivity assistant. The user gives you a free-text description of their day. Respond with ONLY a JSON array of task entries, ordered chronologically. Each entry has "time" (a range like "9:00-10:30"), "task" (short description), and "duration" (like "1h30m"). Include realistic breaks. No prose, no markdown fences, just the JSON array.`

const suggestionsSystemPrompt = `You are a supportive productivity coach. The user shares their plan for the day. Reply with 3-5 short, concrete coaching suggestions to make the day more effective, as plain text bullet points. Be encouraging and specific, not generic.`

// GeneratePlan turns a free-text daily plan into a structured schedule.
func (c *Client) GeneratePlan(ctx context.Context, model, dailyPlan string) (*Result, error) {
	return c.complete(ctx, model, planSystemPrompt, dailyPlan)
}

// GenerateSuggestions produces coaching suggestions for a daily plan. When
// scheduleJSON is non-empty the current schedule is included so suggestions
// can reference it.
func (c *Client) GenerateSuggestions(ctx context.Context, model, dailyPlan, scheduleJSON string) (*Result, error) {
	userPrompt := dailyPlan
	if scheduleJSON != "" {
		userPrompt = fmt.Sprintf("My plan for today:\n%s\n\nMy current schedule (JSON):\n%s", dailyPlan, scheduleJSON)
	}
	return c.complete(ctx, model, suggestionsSystemPrompt, userPrompt)
}

// complete performs one generation with retry. Delays follow
// initialDelay * multiplier^attempt, capped at maxDelay, for at most
// maxRetries retries; only rate-limit failures are retried.
func (c *Client) complete(ctx context.Context, model, systemPrompt, userPrompt string) (*Result, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxResponseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialDelay
	bo.MaxInterval = c.maxDelay
	bo.Multiplier = c.multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	start := time.Now()
	var message *anthropic.Message
	attempt := 0

	operation := func() error {
		attempt++
		m, err := c.newMessage(ctx, params)
		if err == nil {
			message = m
			return nil
		}
		if IsRateLimited(err) {
			c.logger.Printf("ai: rate limited (attempt %d), backing off", attempt)
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)); err != nil {
		return nil, err
	}

	text, err := firstTextBlock(message)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:       text,
		Model:      model,
		TokensUsed: message.Usage.InputTokens + message.Usage.OutputTokens,
		Latency:    time.Since(start),
	}, nil
}

func firstTextBlock(message *anthropic.Message) (string, error) {
	if len(message.Content) == 0 {
		return "", errors.New("unexpected response format: no content blocks")
	}
	content := message.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
	}
	return content.Text, nil
}

// IsRateLimited reports whether err is an upstream rate-limit signal.
func IsRateLimited(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
