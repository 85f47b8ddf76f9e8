// Package llm wraps the language-model completion endpoint. The model
// is an external capability: failures propagate to callers unmodified
// and no retry policy is applied here.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
)

// ChatModel is the completion capability consumed by the answer
// synthesizer and the conversation responder. System-role entries in
// msgs are folded into the system prompt.
type ChatModel interface {
	Complete(ctx context.Context, system string, msgs []core.Message) (string, error)
}

// Config configures the Anthropic client wrapper.
type Config struct {
	// Model is the Claude model name.
	Model string

	// MaxTokens caps the response length.
	MaxTokens int64

	// Temperature is the sampling temperature.
	Temperature float64
}

// DefaultConfig returns the production model settings.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-20250514",
		MaxTokens:   500,
		Temperature: 0.9,
	}
}

// Client implements ChatModel against the Anthropic Messages API.
type Client struct {
	api    *anthropic.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a Client. Zero config fields fall back to defaults.
func New(api *anthropic.Client, cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, cfg: cfg, logger: logger}
}

// Complete sends the conversation to the model and returns the text
// response.
func (c *Client) Complete(ctx context.Context, system string, msgs []core.Message) (string, error) {
	var systemParts []string
	if system != "" {
		systemParts = append(systemParts, system)
	}

	var apiMsgs []anthropic.MessageParam
	for _, m := range msgs {
		switch {
		case m.Role == core.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case m.Role.IsUser():
			apiMsgs = append(apiMsgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		default:
			apiMsgs = append(apiMsgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(apiMsgs) == 0 {
		return "", fmt.Errorf("no user or assistant messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(c.cfg.Temperature),
		Messages:    apiMsgs,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n\n")},
		}
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return "", &core.ExternalError{Capability: "llm", Err: err}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	c.logger.Debug("completion",
		zap.String("model", c.cfg.Model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens))
	return text.String(), nil
}
