package dto

import "time"

// ProcessedArticle is one article with its stored mentions and sentiment.
type ProcessedArticle struct {
	ArticleID      uint
	Title          string
	URL            string
	Source         string
	Mentions       []string
	SentimentScore float64
	SentimentLabel SentimentLabel
}

// AggregateOptions bounds the aggregation output.
type AggregateOptions struct {
	MinScore       float64
	MaxSuggestions int
	// Names resolves display names; codes without a name keep the code.
	Names func(code string) string
}

// RepresentativeArticle is one of the top articles behind a suggestion.
type RepresentativeArticle struct {
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Source         string         `json:"source"`
	SentimentScore float64        `json:"sentiment_score"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
}

// Suggestion is an aggregated, ranked stock.
type Suggestion struct {
	StockCode         string                  `json:"stock_code"`
	StockName         string                  `json:"stock_name"`
	AvgSentimentScore float64                 `json:"avg_sentiment_score"`
	ArticleCount      int                     `json:"article_count"`
	RelatedNewsIDs    []uint                  `json:"related_news_ids"`
	Articles          []RepresentativeArticle `json:"articles"`
	BatchID           string                  `json:"batch_id,omitempty"`
	SuggestedFor      time.Time               `json:"suggested_for"`
}

// Trigger identifies what started a pipeline run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// RunOutcome classifies how a pipeline run ended.
type RunOutcome string

const (
	OutcomeCompleted     RunOutcome = "completed"
	OutcomeNoArticles    RunOutcome = "no_articles"
	OutcomeNoSuggestions RunOutcome = "no_suggestions"
	OutcomeFailed        RunOutcome = "failed"
)

// RunOptions overrides the configured pipeline thresholds for one run.
// Zero values fall back to configuration.
type RunOptions struct {
	MinScore       float64 `json:"min_score" validate:"gte=0,lte=1"`
	MaxSuggestions int     `json:"max_suggestions" validate:"gte=0,lte=50"`
	LookbackDays   int     `json:"lookback_days" validate:"gte=0,lte=30"`
}

// RunResult is the output of one pipeline run.
type RunResult struct {
	BatchID           string       `json:"batch_id"`
	Trigger           Trigger      `json:"trigger"`
	Outcome           RunOutcome   `json:"outcome"`
	ArticlesFetched   int          `json:"articles_fetched"`
	ArticlesProcessed int          `json:"articles_processed"`
	Suggestions       []Suggestion `json:"suggestions"`
	StartedAt         time.Time    `json:"started_at"`
	CompletedAt       time.Time    `json:"completed_at"`
	Error             string       `json:"error,omitempty"`
}

// BatchCompletedEvent is published when a run ends, whatever its outcome.
type BatchCompletedEvent struct {
	BatchID          string       `json:"batch_id"`
	Trigger          Trigger      `json:"trigger"`
	Outcome          RunOutcome   `json:"outcome"`
	SuggestionsCount int          `json:"suggestions_count"`
	Suggestions      []Suggestion `json:"suggestions,omitempty"`
	Error            string       `json:"error,omitempty"`
	CompletedAt      time.Time    `json:"completed_at"`
}
