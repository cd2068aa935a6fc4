package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-suggester/internal/executor/dto"
)

func TestBuildSentimentPrompt_TruncatesExcerpt(t *testing.T) {
	text := strings.Repeat("a", 1500) + "TAIL"
	prompt := BuildSentimentPrompt(text, 1000)

	assert.Contains(t, prompt, strings.Repeat("a", 1000))
	assert.NotContains(t, prompt, strings.Repeat("a", 1001))
	assert.NotContains(t, prompt, "TAIL")
	assert.Contains(t, prompt, `"sentiment"`)
	assert.Contains(t, prompt, `"confidence"`)
}

func TestParseSentimentResponse(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantOK     bool
		wantLabel  dto.SentimentLabel
		wantScore  float64
		wantConfid float64
	}{
		{
			name:       "plain json",
			content:    `{"sentiment": "positive", "confidence": 0.8, "reasoning": "beat estimates"}`,
			wantOK:     true,
			wantLabel:  dto.SentimentPositive,
			wantScore:  0.9,
			wantConfid: 0.8,
		},
		{
			name:       "fenced json with prose",
			content:    "Here you go:\n```json\n{\"sentiment\": \"Negative\", \"confidence\": \"0.6\"}\n```",
			wantOK:     true,
			wantLabel:  dto.SentimentNegative,
			wantScore:  0.2,
			wantConfid: 0.6,
		},
		{
			name:       "confidence clamped",
			content:    `{"sentiment": "positive", "confidence": 3}`,
			wantOK:     true,
			wantLabel:  dto.SentimentPositive,
			wantScore:  1.0,
			wantConfid: 1.0,
		},
		{
			name:       "neutral label",
			content:    `{"sentiment": "neutral", "confidence": 0.9}`,
			wantOK:     true,
			wantLabel:  dto.SentimentNeutral,
			wantScore:  0.5,
			wantConfid: 0.9,
		},
		{
			name:      "not json",
			content:   "I think it is positive",
			wantLabel: dto.SentimentNeutral,
			wantScore: 0.5,
		},
		{
			name:      "unknown label",
			content:   `{"sentiment": "ecstatic", "confidence": 0.9}`,
			wantLabel: dto.SentimentNeutral,
			wantScore: 0.5,
		},
		{
			name:      "broken json",
			content:   `{"sentiment": "positive", "confidence": }`,
			wantLabel: dto.SentimentNeutral,
			wantScore: 0.5,
		},
		{
			name:      "nan confidence",
			content:   `{"sentiment": "positive", "confidence": "NaN"}`,
			wantLabel: dto.SentimentNeutral,
			wantScore: 0.5,
		},
		{
			name:      "infinite confidence",
			content:   `{"sentiment": "negative", "confidence": "-Inf"}`,
			wantLabel: dto.SentimentNeutral,
			wantScore: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := ParseSentimentResponse(tt.content, dto.ProviderOpenAI, "gpt-test")
			require.NotNil(t, result)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, result.Label)
			assert.InDelta(t, tt.wantScore, result.Score, 1e-9)
			assert.InDelta(t, tt.wantConfid, result.Confidence, 1e-9)
			assert.Equal(t, dto.ProviderOpenAI, result.Provider)
			assert.Equal(t, "gpt-test", result.ModelName)
		})
	}
}
