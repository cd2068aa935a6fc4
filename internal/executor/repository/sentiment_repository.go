package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"

	"golang.org/x/time/rate"
)

// ErrModelUnavailable is returned by the local provider when its model artifact failed to load.
var ErrModelUnavailable = errors.New("sentiment model unavailable")

// SentimentRepository scores the sentiment of a text.
type SentimentRepository interface {
	Analyze(ctx context.Context, text string) (*dto.SentimentResult, error)
	// IsConfigured reports whether the backend's credentials or model artifact are present.
	IsConfigured() bool
	Provider() dto.SentimentProvider
	ModelName() string
}

// NewSentimentRepository resolves the configured provider once. Unknown
// providers and providers missing prerequisites fall back to the local model.
func NewSentimentRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) SentimentRepository {
	repo := selectSentimentRepository(ctx, cfg, log)
	log.Info("Sentiment provider selected",
		logger.StringField("provider", string(repo.Provider())),
		logger.StringField("configured", cfg.Sentiment.Provider))

	if cfg.Sentiment.CacheTTL > 0 {
		return NewCachedSentimentRepository(repo, cfg.Sentiment.CacheTTL)
	}
	return repo
}

func selectSentimentRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) SentimentRepository {
	local := NewLocalSentimentRepository(cfg.Local, log)

	var remote SentimentRepository
	switch dto.SentimentProvider(cfg.Sentiment.Provider) {
	case dto.ProviderLocal, "":
		return local
	case dto.ProviderOpenAI:
		remote = NewOpenAISentimentRepository(cfg, log)
	case dto.ProviderAnthropic:
		remote = NewAnthropicSentimentRepository(cfg, log)
	case dto.ProviderGemini:
		gemini, err := NewGeminiSentimentRepository(ctx, cfg, log)
		if err != nil {
			log.Warn("Failed to create Gemini client, falling back to local sentiment",
				logger.ErrorField(err))
			return local
		}
		remote = gemini
	default:
		log.Warn("Unknown sentiment provider, falling back to local sentiment",
			logger.StringField("provider", cfg.Sentiment.Provider))
		return local
	}

	if !remote.IsConfigured() {
		log.Warn("Sentiment provider is not configured, falling back to local sentiment",
			logger.StringField("provider", cfg.Sentiment.Provider))
		return local
	}
	return remote
}

// completionClient sends one prompt to a hosted model and returns its text reply.
type completionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// remoteSentimentRepository holds what the hosted providers share: the
// prompt, rate limit, per-call timeout and reply parsing.
type remoteSentimentRepository struct {
	provider       dto.SentimentProvider
	model          string
	configured     bool
	excerptLength  int
	timeout        time.Duration
	requestLimiter *rate.Limiter
	client         completionClient
	logger         *logger.Logger
}

func newRemoteSentimentRepository(provider dto.SentimentProvider, model string, configured bool, cfg config.Sentiment, client completionClient, log *logger.Logger) *remoteSentimentRepository {
	perMinute := cfg.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	excerpt := cfg.ExcerptLength
	if excerpt <= 0 {
		excerpt = 1000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &remoteSentimentRepository{
		provider:       provider,
		model:          model,
		configured:     configured,
		excerptLength:  excerpt,
		timeout:        timeout,
		requestLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		client:         client,
		logger:         log,
	}
}

func (r *remoteSentimentRepository) Analyze(ctx context.Context, text string) (*dto.SentimentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	content, err := r.client.Complete(ctx, BuildSentimentPrompt(text, r.excerptLength))
	if err != nil {
		return nil, fmt.Errorf("%s sentiment request failed: %w", r.provider, err)
	}

	result, ok := ParseSentimentResponse(content, r.provider, r.model)
	if !ok {
		r.logger.Warn("Malformed sentiment response, using neutral result",
			logger.StringField("provider", string(r.provider)),
			logger.StringField("response", content))
	}
	return result, nil
}

func (r *remoteSentimentRepository) IsConfigured() bool {
	return r.configured
}

func (r *remoteSentimentRepository) Provider() dto.SentimentProvider {
	return r.provider
}

func (r *remoteSentimentRepository) ModelName() string {
	return r.model
}
