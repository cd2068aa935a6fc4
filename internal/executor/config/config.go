package config

import (
	"fmt"
	"time"

	schedulerconfig "golang-stock-suggester/internal/scheduler/config"
	"golang-stock-suggester/pkg/config"
)

// Pipeline holds the suggestion pipeline settings.
type Pipeline struct {
	MinSentimentScore float64       `mapstructure:"min_sentiment_score" validate:"gte=0,lte=1"`
	MaxSuggestions    int           `mapstructure:"max_suggestions" validate:"gte=1,lte=50"`
	LookbackDays      int           `mapstructure:"lookback_days" validate:"gte=1,lte=30"`
	MaxConcurrent     int           `mapstructure:"max_concurrent" validate:"gte=1,lte=64"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	BatchWindow       time.Duration `mapstructure:"batch_window"`
}

// Sentiment holds the sentiment provider settings.
type Sentiment struct {
	Provider            string        `mapstructure:"provider"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ExcerptLength       int           `mapstructure:"excerpt_length" validate:"gte=100"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gte=1"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// Local holds the in-process sentiment model settings.
type Local struct {
	ModelName string `mapstructure:"model_name"`
	// ModelPath points at a YAML lexicon artifact; empty uses the embedded one.
	ModelPath string `mapstructure:"model_path"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"gte=1"`
}

// OpenAI holds the configuration for the OpenAI API.
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Anthropic holds the configuration for the Anthropic API.
type Anthropic struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Registry holds the symbol registry location.
type Registry struct {
	Path string `mapstructure:"path"`
}

// Feed is one configured RSS feed.
type Feed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url" validate:"required,url"`
}

// News holds the news source settings.
type News struct {
	Feeds             []Feed        `mapstructure:"feeds" validate:"dive"`
	GoogleNewsQueries []string      `mapstructure:"google_news_queries"`
	GoogleNewsBaseURL string        `mapstructure:"google_news_base_url"`
	MaxArticles       int           `mapstructure:"max_articles" validate:"gte=1"`
	FetchFullText     bool          `mapstructure:"fetch_full_text"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// Telegram holds configuration for the Telegram bot.
type Telegram struct {
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
}

// Enabled reports whether a bot token was configured.
func (t Telegram) Enabled() bool {
	return t.BotToken != ""
}

// Consumer holds the batch-completed stream consumer settings.
type Consumer struct {
	BlockTimeout   time.Duration `mapstructure:"block_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	MaxIdle        time.Duration `mapstructure:"max_idle"`
}

// Config holds the full configuration for the suggester service.
type Config struct {
	App       config.App                `mapstructure:"app"`
	Logger    config.Logger             `mapstructure:"logger"`
	Database  config.Database           `mapstructure:"database"`
	Redis     config.Redis              `mapstructure:"redis"`
	API       config.API                `mapstructure:"api"`
	Pipeline  Pipeline                  `mapstructure:"pipeline"`
	Sentiment Sentiment                 `mapstructure:"sentiment"`
	Local     Local                     `mapstructure:"local"`
	OpenAI    OpenAI                    `mapstructure:"openai"`
	Anthropic Anthropic                 `mapstructure:"anthropic"`
	Gemini    Gemini                    `mapstructure:"gemini"`
	Registry  Registry                  `mapstructure:"registry"`
	News      News                      `mapstructure:"news"`
	Telegram  Telegram                  `mapstructure:"telegram"`
	Consumer  Consumer                  `mapstructure:"consumer"`
	Scheduler schedulerconfig.Scheduler `mapstructure:"scheduler"`
}

// Defaults returns the values used for keys missing from the config file.
func Defaults() map[string]interface{} {
	sched := schedulerconfig.Defaults()
	return map[string]interface{}{
		"app.name":                         "stock-suggester",
		"logger.level":                     "info",
		"logger.encoding":                  "json",
		"database.driver":                  "sqlite",
		"database.path":                    "data/suggester.db",
		"database.auto_migrate":            true,
		"api.port":                         8080,
		"pipeline.min_sentiment_score":     0.6,
		"pipeline.max_suggestions":         10,
		"pipeline.lookback_days":           7,
		"pipeline.max_concurrent":          4,
		"pipeline.run_timeout":             "30m",
		"pipeline.lock_ttl":                "45m",
		"pipeline.batch_window":            "1m",
		"sentiment.provider":               "local",
		"sentiment.timeout":                "30s",
		"sentiment.excerpt_length":         1000,
		"sentiment.max_request_per_minute": 60,
		"sentiment.cache_ttl":              "24h",
		"local.model_name":                 "finance-lexicon-v1",
		"local.max_tokens":                 512,
		"openai.model":                     "gpt-4o-mini",
		"anthropic.model":                  "claude-3-5-haiku-latest",
		"gemini.model":                     "gemini-2.0-flash",
		"registry.path":                    "data/stock_symbols.json",
		"news.max_articles":                50,
		"news.timeout":                     "20s",
		"news.user_agent":                  "Mozilla/5.0 (compatible; stock-suggester/1.0)",
		"news.google_news_base_url":        "https://news.google.com/rss/search",
		"consumer.block_timeout":           "5s",
		"consumer.handler_timeout":         "1m",
		"consumer.retry_interval":          "1m",
		"consumer.max_idle":                "5m",
		"scheduler.enabled":                sched.Enabled,
		"scheduler.frequency":              string(sched.Frequency),
		"scheduler.time":                   sched.Time,
		"scheduler.times":                  sched.Times,
		"scheduler.weekday":                sched.Weekday,
		"scheduler.timezone":               sched.Timezone,
	}
}

// Load loads and validates the suggester configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.LoadWithDefaults(path, &cfg, Defaults()); err != nil {
		return nil, err
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
