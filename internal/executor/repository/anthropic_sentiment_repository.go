package repository

import (
	"context"
	"errors"
	"strings"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 500

type anthropicCompletion struct {
	client anthropic.Client
	model  string
}

// NewAnthropicSentimentRepository creates a sentiment provider backed by the Anthropic messages API.
func NewAnthropicSentimentRepository(cfg *config.Config, log *logger.Logger) SentimentRepository {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Anthropic.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}

	completion := &anthropicCompletion{
		client: anthropic.NewClient(opts...),
		model:  cfg.Anthropic.Model,
	}
	return newRemoteSentimentRepository(dto.ProviderAnthropic, cfg.Anthropic.Model, cfg.Anthropic.APIKey != "", cfg.Sentiment, completion, log)
}

func (c *anthropicCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("no text in anthropic response")
	}
	return text.String(), nil
}
