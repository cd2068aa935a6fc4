package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/utils"
)

// BuildSentimentPrompt asks for a JSON sentiment verdict on the first excerptLength runes of text.
func BuildSentimentPrompt(text string, excerptLength int) string {
	return fmt.Sprintf(`Analyze the sentiment of this financial news article and classify it as positive, negative, or neutral for stock market implications.

Article: %s

Respond in JSON format only, without markdown:
{"sentiment": "positive/negative/neutral", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		utils.Truncate(utils.CleanToValidUTF8(text), excerptLength))
}

type sentimentVerdict struct {
	Sentiment  string        `json:"sentiment"`
	Confidence flexibleFloat `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
}

// flexibleFloat accepts both 0.8 and "0.8". NaN and infinities are rejected.
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid confidence %s: %w", string(b), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid confidence %s: not a finite number", string(b))
	}
	*f = flexibleFloat(v)
	return nil
}

// ParseSentimentResponse reads a model reply. Replies that are not a JSON
// verdict with a known label yield the neutral result and ok=false.
func ParseSentimentResponse(content string, provider dto.SentimentProvider, modelName string) (*dto.SentimentResult, bool) {
	raw, found := extractJSONObject(content)
	if !found {
		return dto.NeutralSentiment(provider, modelName), false
	}

	var verdict sentimentVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return dto.NeutralSentiment(provider, modelName), false
	}

	label, ok := dto.ParseSentimentLabel(verdict.Sentiment)
	if !ok {
		return dto.NeutralSentiment(provider, modelName), false
	}

	result := dto.NewSentimentResult(label, float64(verdict.Confidence), provider, modelName)
	result.Reasoning = verdict.Reasoning
	return result, true
}

// extractJSONObject strips markdown fences and surrounding prose.
func extractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
