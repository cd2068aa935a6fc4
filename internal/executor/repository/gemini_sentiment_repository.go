package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"

	"google.golang.org/genai"
)

type geminiCompletion struct {
	client *genai.Client
	model  string
}

// NewGeminiSentimentRepository creates a sentiment provider backed by the Gemini API.
func NewGeminiSentimentRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (SentimentRepository, error) {
	if cfg.Gemini.APIKey == "" {
		return newRemoteSentimentRepository(dto.ProviderGemini, cfg.Gemini.Model, false, cfg.Sentiment, nil, log), nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Gemini.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Gemini.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	completion := &geminiCompletion{
		client: client,
		model:  cfg.Gemini.Model,
	}
	return newRemoteSentimentRepository(dto.ProviderGemini, cfg.Gemini.Model, true, cfg.Sentiment, completion, log), nil
}

func (c *geminiCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in gemini response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}
