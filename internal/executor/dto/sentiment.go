package dto

import (
	"math"
	"strings"
)

// SentimentLabel is the discrete sentiment of a text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// ParseSentimentLabel maps free-form labels onto the closed label set.
func ParseSentimentLabel(s string) (SentimentLabel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "bullish":
		return SentimentPositive, true
	case "negative", "bearish":
		return SentimentNegative, true
	case "neutral", "sideways":
		return SentimentNeutral, true
	}
	return "", false
}

// SentimentProvider identifies a sentiment backend.
type SentimentProvider string

const (
	ProviderLocal     SentimentProvider = "local"
	ProviderOpenAI    SentimentProvider = "openai"
	ProviderAnthropic SentimentProvider = "anthropic"
	ProviderGemini    SentimentProvider = "gemini"
)

// SentimentResult is the output of one sentiment analysis.
type SentimentResult struct {
	Label      SentimentLabel    `json:"label"`
	Score      float64           `json:"score"`
	Confidence float64           `json:"confidence"`
	Provider   SentimentProvider `json:"provider"`
	ModelName  string            `json:"model_name,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
}

// NormalizeScore converts a label and confidence into a score in [0,1] where 0.5 is neutral.
func NormalizeScore(label SentimentLabel, confidence float64) float64 {
	c := clamp01(confidence)
	switch label {
	case SentimentPositive:
		return 0.5 + c/2
	case SentimentNegative:
		return 0.5 - c/2
	default:
		return 0.5
	}
}

// NewSentimentResult builds a result with a normalized score.
func NewSentimentResult(label SentimentLabel, confidence float64, provider SentimentProvider, modelName string) *SentimentResult {
	c := clamp01(confidence)
	return &SentimentResult{
		Label:      label,
		Score:      NormalizeScore(label, c),
		Confidence: c,
		Provider:   provider,
		ModelName:  modelName,
	}
}

// NeutralSentiment is the result recorded when a provider fails.
func NeutralSentiment(provider SentimentProvider, modelName string) *SentimentResult {
	return &SentimentResult{
		Label:      SentimentNeutral,
		Score:      0.5,
		Confidence: 0,
		Provider:   provider,
		ModelName:  modelName,
	}
}

// IsFallback reports whether the result carries no signal.
func (r *SentimentResult) IsFallback() bool {
	return r.Label == SentimentNeutral && r.Confidence == 0
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
