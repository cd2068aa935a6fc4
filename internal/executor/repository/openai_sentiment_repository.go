package repository

import (
	"context"
	"errors"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"

	"github.com/sashabaranov/go-openai"
)

type openaiCompletion struct {
	client *openai.Client
	model  string
}

// NewOpenAISentimentRepository creates a sentiment provider backed by the OpenAI chat API.
func NewOpenAISentimentRepository(cfg *config.Config, log *logger.Logger) SentimentRepository {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}

	completion := &openaiCompletion{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.OpenAI.Model,
	}
	return newRemoteSentimentRepository(dto.ProviderOpenAI, cfg.OpenAI.Model, cfg.OpenAI.APIKey != "", cfg.Sentiment, completion, log)
}

func (c *openaiCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	return resp.Choices[0].Message.Content, nil
}
