package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// Client talks to any OpenAI-compatible chat completion endpoint
// (DeepSeek, OpenAI, the Gemini compatibility layer).
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	jsonMode    bool
	timeout     time.Duration
	retry       RetryPolicy
	logger      *logger.Logger
}

type Option func(*Client)

// WithRetryPolicy replaces the policy derived from config.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func NewClient(cfg config.LLMConfig, log *logger.Logger, opts ...Option) *Client {
	ocfg := openai.DefaultConfig(cfg.APIKey)
	ocfg.BaseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		ocfg.BaseURL = cfg.BaseURL
	}

	retry := DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	if cfg.BackoffSeconds > 0 {
		retry.Initial = time.Duration(cfg.BackoffSeconds) * time.Second
	}

	c := &Client{
		client:      openai.NewClientWithConfig(ocfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode == nil || *cfg.JSONMode,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		retry:       retry,
		logger:      log.Component("llm"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Recommend asks the model for trades. Every failure matches ErrNoResponse
// and is an *Error carrying its class.
func (c *Client) Recommend(ctx context.Context, mc *MarketContext) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(mc.Strategy)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(mc)},
		},
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	c.logger.Info("requesting recommendations",
		"model", c.model,
		"strategy", mc.Strategy,
		"symbols", len(mc.Snapshots),
		"positions", len(mc.Positions))

	var (
		result   *Response
		attempts int
	)
	op := func(ctx context.Context) error {
		attempts++
		resp, err := c.attempt(ctx, req)
		if err != nil {
			c.logger.Warn("model attempt failed", "attempt", attempts, "class", Classify(err), "error", err)
			return err
		}
		result = resp
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Info("retrying model call", "attempt", attempts, "wait", wait)
	}

	if err := c.retry.Do(ctx, op, notify); err != nil {
		class := Classify(err)
		c.logger.Error("model call failed", "attempts", attempts, "class", class, "error", err)
		return nil, &Error{Class: class, Attempts: attempts, Err: err}
	}

	result.Attempts = attempts
	c.logger.Info("recommendations received",
		"attempts", attempts,
		"trades", len(result.Trades),
		"summary", result.AnalysisSummary)
	return result, nil
}

func (c *Client) attempt(ctx context.Context, req openai.ChatCompletionRequest) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &parseError{text: "no choices"}
	}

	raw := resp.Choices[0].Message.Content
	c.logger.Debug("model raw response", "length", len(raw), "content", raw)

	parsed, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	parsed.Raw = raw
	return parsed, nil
}

// IsQuota reports whether err is a permanent quota exhaustion.
func IsQuota(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == ClassQuota
}
