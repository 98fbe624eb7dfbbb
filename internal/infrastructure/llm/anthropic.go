// Package llm adapts the Anthropic Messages API to domain.TextGenerator.
package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-haiku-4-5-20251001"

// Config holds the Anthropic connection settings
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
}

// AnthropicGenerator sends single-turn prompts to Claude and returns the text reply.
type AnthropicGenerator struct {
	client sdk.Client
	model  string
}

// NewAnthropicGenerator creates a generator backed by the official SDK.
func NewAnthropicGenerator(cfg Config) *AnthropicGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &AnthropicGenerator{
		client: sdk.NewClient(opts...),
		model:  model,
	}
}

// Model returns the configured model identifier.
func (g *AnthropicGenerator) Model() string {
	return g.model
}

// Generate implements domain.TextGenerator.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	text := joinText(msg)
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("anthropic: empty reply (stop_reason=%s)", msg.StopReason)
	}

	zap.L().Debug("anthropic reply",
		zap.String("model", string(msg.Model)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return text, nil
}

func joinText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
