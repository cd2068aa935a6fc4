package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/internal/executor/repository"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// ErrRunInProgress is returned when a pipeline run is already executing.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// SuggestionPipeline turns news articles into ranked, persisted stock suggestions.
type SuggestionPipeline interface {
	// Run processes the given articles as one batch under the same locks and
	// bookkeeping as RunNow.
	Run(ctx context.Context, articles []dto.Article, opts dto.RunOptions) (*dto.RunResult, error)
	// RunNow fetches articles from every configured source and runs one batch,
	// recording the run and announcing its completion.
	RunNow(ctx context.Context, trigger dto.Trigger, opts dto.RunOptions) (*dto.RunResult, error)
	LatestBatch(ctx context.Context) ([]dto.Suggestion, error)
	Batch(ctx context.Context, batchID string) ([]dto.Suggestion, error)
	SuggestionsFor(ctx context.Context, date time.Time, minScore float64, limit int) ([]dto.Suggestion, error)
	LatestRun(ctx context.Context) (*entity.PipelineRun, error)
}

// PipelineDeps groups the collaborators of the suggestion pipeline.
type PipelineDeps struct {
	Registry    *SymbolRegistry
	Extractor   MentionExtractor
	Sentiment   repository.SentimentRepository
	Articles    repository.NewsArticleRepository
	Sentiments  repository.SentimentAnalysisRepository
	Suggestions repository.StockSuggestionRepository
	Runs        repository.PipelineRunRepository
	Sources     []repository.NewsSourceRepository
	RunLock     repository.RunLockRepository
	Events      repository.BatchEventRepository
	MaxArticles int
	Now         func() time.Time
}

// NewSuggestionPipeline creates a new SuggestionPipeline. RunLock and Events are optional.
func NewSuggestionPipeline(deps PipelineDeps, cfg config.Pipeline, log *logger.Logger) SuggestionPipeline {
	if deps.Registry == nil {
		deps.Registry = FallbackSymbolRegistry()
	}
	if deps.Extractor == nil {
		deps.Extractor = NewMentionExtractor(deps.Registry)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &suggestionPipeline{deps: deps, cfg: cfg, logger: log}
}

type suggestionPipeline struct {
	deps   PipelineDeps
	cfg    config.Pipeline
	logger *logger.Logger

	// one run at a time per process
	mu sync.Mutex
}

func (s *suggestionPipeline) Run(ctx context.Context, articles []dto.Article, opts dto.RunOptions) (*dto.RunResult, error) {
	return s.execute(ctx, dto.TriggerManual, opts, func(dto.RunOptions) []dto.Article {
		return articles
	})
}

func (s *suggestionPipeline) RunNow(ctx context.Context, trigger dto.Trigger, opts dto.RunOptions) (*dto.RunResult, error) {
	return s.execute(ctx, trigger, opts, func(options dto.RunOptions) []dto.Article {
		return s.fetchArticles(ctx, options.LookbackDays)
	})
}

// execute holds the process mutex and, when configured, the distributed run
// lock for the whole batch. Every batch gets a pipeline_runs row and a
// completion event.
func (s *suggestionPipeline) execute(ctx context.Context, trigger dto.Trigger, opts dto.RunOptions, load func(dto.RunOptions) []dto.Article) (*dto.RunResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.deps.RunLock != nil {
		release, err := s.deps.RunLock.Acquire(ctx)
		if errors.Is(err, repository.ErrRunLocked) {
			return nil, ErrRunInProgress
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer release()
	}

	options := s.effectiveOptions(opts)
	result := &dto.RunResult{
		BatchID:   uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.deps.Now().UTC(),
	}
	log := s.logger.With(logger.StringField("batch_id", result.BatchID), logger.StringField("trigger", string(trigger)))
	log.Info("Pipeline run started")

	run := &entity.PipelineRun{
		BatchID:   result.BatchID,
		Trigger:   string(trigger),
		Status:    entity.RunStatusRunning,
		StartedAt: result.StartedAt,
	}
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		log.Error("Failed to record pipeline run", logger.ErrorField(err))
		run = nil
	}

	articles := load(options)
	result.ArticlesFetched = len(articles)

	runErr := s.process(ctx, articles, options, result)
	result.CompletedAt = s.deps.Now().UTC()
	if runErr != nil {
		result.Outcome = dto.OutcomeFailed
		result.Error = runErr.Error()
		log.Error("Pipeline run failed", logger.ErrorField(runErr))
	} else {
		log.Info("Pipeline run completed",
			logger.StringField("outcome", string(result.Outcome)),
			logger.IntField("articles_fetched", result.ArticlesFetched),
			logger.IntField("articles_processed", result.ArticlesProcessed),
			logger.IntField("suggestions", len(result.Suggestions)))
	}

	// bookkeeping must survive a cancelled run context
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if run != nil {
		s.finishRun(finishCtx, run, result)
	}
	s.publish(finishCtx, result)

	return result, runErr
}

func (s *suggestionPipeline) LatestBatch(ctx context.Context) ([]dto.Suggestion, error) {
	rows, err := s.deps.Suggestions.FindLatestBatch(ctx, s.cfg.BatchWindow)
	if err != nil {
		return nil, err
	}
	return toSuggestions(rows)
}

func (s *suggestionPipeline) Batch(ctx context.Context, batchID string) ([]dto.Suggestion, error) {
	rows, err := s.deps.Suggestions.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return toSuggestions(rows)
}

func (s *suggestionPipeline) SuggestionsFor(ctx context.Context, date time.Time, minScore float64, limit int) ([]dto.Suggestion, error) {
	rows, err := s.deps.Suggestions.FindForDate(ctx, date, minScore, limit)
	if err != nil {
		return nil, err
	}
	return toSuggestions(rows)
}

func (s *suggestionPipeline) LatestRun(ctx context.Context) (*entity.PipelineRun, error) {
	return s.deps.Runs.FindLatest(ctx)
}

func (s *suggestionPipeline) effectiveOptions(opts dto.RunOptions) dto.RunOptions {
	if opts.MinScore <= 0 {
		opts.MinScore = s.cfg.MinSentimentScore
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = s.cfg.MaxSuggestions
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = s.cfg.LookbackDays
	}
	return opts
}

// process runs dedup, per-article work, aggregation and persistence, filling result.
func (s *suggestionPipeline) process(ctx context.Context, articles []dto.Article, opts dto.RunOptions, result *dto.RunResult) error {
	ctx = logger.WithContext(ctx, logger.StringField("batch_id", result.BatchID))

	unique := dedupeArticles(articles)
	if len(unique) == 0 {
		result.Outcome = dto.OutcomeNoArticles
		result.Suggestions = []dto.Suggestion{}
		return nil
	}

	processed, err := s.processArticles(ctx, unique)
	if err != nil {
		return err
	}
	result.ArticlesProcessed = len(processed)

	suggestions := Aggregate(processed, dto.AggregateOptions{
		MinScore:       opts.MinScore,
		MaxSuggestions: opts.MaxSuggestions,
		Names:          s.deps.Registry.Name,
	})
	s.logger.InfoContext(ctx, "Aggregated suggestions",
		logger.IntField("articles", len(processed)),
		logger.IntField("suggestions", len(suggestions)),
		logger.Float64Field("min_score", opts.MinScore))

	suggestedFor := s.deps.Now().UTC()
	stored := make([]dto.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		suggestion.BatchID = result.BatchID
		suggestion.SuggestedFor = suggestedFor
		if err := s.storeSuggestion(ctx, suggestion); err != nil {
			s.logger.ErrorContext(ctx, "Failed to store suggestion", logger.ErrorField(err), logger.StringField("stock_code", suggestion.StockCode))
			continue
		}
		stored = append(stored, suggestion)
	}
	result.Suggestions = stored

	if len(stored) == 0 {
		result.Outcome = dto.OutcomeNoSuggestions
	} else {
		result.Outcome = dto.OutcomeCompleted
	}
	return nil
}

// processArticles handles articles concurrently and returns the successful
// results in input order. A failing article is logged and skipped.
func (s *suggestionPipeline) processArticles(ctx context.Context, articles []dto.Article) ([]dto.ProcessedArticle, error) {
	results := make([]*dto.ProcessedArticle, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range articles {
		article := articles[i]
		idx := i
		g.Go(func() error {
			if !utils.ShouldContinue(gctx, s.logger) {
				return gctx.Err()
			}
			var processed *dto.ProcessedArticle
			err := utils.SafeCall(func() error {
				var err error
				processed, err = s.processArticle(gctx, article)
				return err
			})
			if err != nil {
				s.logger.Warn("Failed to process article", logger.ErrorField(err), logger.StringField("url", article.URL))
				return nil
			}
			s.logger.DebugContext(gctx, "Article processed",
				logger.StringField("url", processed.URL),
				logger.StringsField("mentions", processed.Mentions),
				logger.Float64Field("sentiment_score", processed.SentimentScore))
			results[idx] = processed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline run interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline run interrupted: %w", err)
	}

	processed := make([]dto.ProcessedArticle, 0, len(articles))
	for _, r := range results {
		if r != nil {
			processed = append(processed, *r)
		}
	}
	return processed, nil
}

// processArticle stores the article and its mentions once, then makes sure it
// has exactly one sentiment record.
func (s *suggestionPipeline) processArticle(ctx context.Context, article dto.Article) (*dto.ProcessedArticle, error) {
	stored, err := s.deps.Articles.FindByURL(ctx, article.URL)
	if err != nil {
		return nil, err
	}

	if stored == nil {
		record := s.newArticleRecord(article)
		created, err := s.deps.Articles.CreateIgnoreConflict(ctx, record)
		if err != nil {
			return nil, err
		}
		if created {
			stored = record
		} else {
			// a concurrent run stored it first
			stored, err = s.deps.Articles.FindByURL(ctx, article.URL)
			if err != nil {
				return nil, err
			}
			if stored == nil {
				return nil, fmt.Errorf("article %s vanished after conflict", article.URL)
			}
		}
	}

	analysis, err := s.deps.Sentiments.FindByArticleID(ctx, stored.ID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		sentiment := s.analyze(ctx, article.AnalysisText())
		analysis = &entity.SentimentAnalysis{
			NewsArticleID:  stored.ID,
			SentimentScore: sentiment.Score,
			SentimentLabel: string(sentiment.Label),
			Confidence:     sentiment.Confidence,
			Provider:       string(sentiment.Provider),
		}
		if sentiment.ModelName != "" {
			analysis.ModelName = utils.ToPointer(sentiment.ModelName)
		}
		if err := s.deps.Sentiments.Create(ctx, analysis); err != nil {
			existing, findErr := s.deps.Sentiments.FindByArticleID(ctx, stored.ID)
			if findErr != nil || existing == nil {
				return nil, err
			}
			analysis = existing
		}
	}

	return &dto.ProcessedArticle{
		ArticleID:      stored.ID,
		Title:          stored.Title,
		URL:            stored.URL,
		Source:         stored.Source,
		Mentions:       stored.MentionedCodes(),
		SentimentScore: analysis.SentimentScore,
		SentimentLabel: dto.SentimentLabel(analysis.SentimentLabel),
	}, nil
}

func (s *suggestionPipeline) newArticleRecord(article dto.Article) *entity.NewsArticle {
	var mentions []string
	if err := utils.SafeCall(func() error {
		mentions = s.deps.Extractor.Extract(article.AnalysisText())
		return nil
	}); err != nil {
		s.logger.Warn("Mention extraction failed", logger.ErrorField(err), logger.StringField("url", article.URL))
		mentions = nil
	}

	record := &entity.NewsArticle{
		Title:  article.Title,
		URL:    article.URL,
		Source: article.Source,
	}
	if !article.PublishedAt.IsZero() {
		record.PublishedAt = utils.ToPointer(article.PublishedAt.UTC())
	}
	if article.Content != "" {
		record.Content = utils.ToPointer(article.Content)
	}
	for _, code := range mentions {
		record.StockMentions = append(record.StockMentions, entity.StockMention{StockCode: code})
	}
	return record
}

// analyze never fails: provider errors and panics become a neutral result
// carrying the provider identity.
func (s *suggestionPipeline) analyze(ctx context.Context, text string) *dto.SentimentResult {
	provider := s.deps.Sentiment.Provider()
	model := s.deps.Sentiment.ModelName()

	var result *dto.SentimentResult
	err := utils.SafeCall(func() error {
		var err error
		result, err = s.deps.Sentiment.Analyze(ctx, text)
		return err
	})
	if err != nil || result == nil {
		s.logger.Warn("Sentiment analysis failed, using neutral",
			logger.ErrorField(err),
			logger.StringField("provider", string(provider)))
		return dto.NeutralSentiment(provider, model)
	}
	return result
}

func (s *suggestionPipeline) storeSuggestion(ctx context.Context, suggestion dto.Suggestion) error {
	details, err := json.Marshal(suggestion.Articles)
	if err != nil {
		return fmt.Errorf("failed to marshal article details: %w", err)
	}

	ids := make([]string, len(suggestion.RelatedNewsIDs))
	for i, id := range suggestion.RelatedNewsIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}

	return s.deps.Suggestions.Create(ctx, &entity.StockSuggestion{
		BatchID:           suggestion.BatchID,
		StockCode:         suggestion.StockCode,
		StockName:         suggestion.StockName,
		AvgSentimentScore: suggestion.AvgSentimentScore,
		ArticleCount:      suggestion.ArticleCount,
		RelatedNewsIDs:    strings.Join(ids, ","),
		ArticleDetails:    datatypes.JSON(details),
		SuggestedFor:      suggestion.SuggestedFor,
	})
}

// fetchArticles collects articles from every configured source concurrently.
// A failing source is logged and contributes nothing.
func (s *suggestionPipeline) fetchArticles(ctx context.Context, lookbackDays int) []dto.Article {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		articles []dto.Article
	)

	for _, source := range s.deps.Sources {
		if !source.IsConfigured() {
			s.logger.Debug("Skipping unconfigured news source", logger.StringField("source", source.Name()))
			continue
		}
		src := source
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			fetched, err := src.Fetch(ctx, lookbackDays, s.deps.MaxArticles)
			if err != nil {
				s.logger.Warn("Failed to fetch news source", logger.ErrorField(err), logger.StringField("source", src.Name()))
				return
			}
			mu.Lock()
			articles = append(articles, fetched...)
			mu.Unlock()
		})
	}
	wg.Wait()

	if lookbackDays <= 0 {
		return articles
	}
	cutoff := s.deps.Now().AddDate(0, 0, -lookbackDays)
	recent := articles[:0]
	for _, a := range articles {
		if !a.PublishedAt.IsZero() && a.PublishedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, a)
	}
	return recent
}

func (s *suggestionPipeline) finishRun(ctx context.Context, run *entity.PipelineRun, result *dto.RunResult) {
	run.Outcome = string(result.Outcome)
	run.ArticlesFetched = result.ArticlesFetched
	run.ArticlesProcessed = result.ArticlesProcessed
	run.SuggestionsCount = len(result.Suggestions)
	run.CompletedAt = sql.NullTime{Time: result.CompletedAt, Valid: true}
	if result.Outcome == dto.OutcomeFailed {
		run.Status = entity.RunStatusFailed
		run.ErrorMessage = sql.NullString{String: result.Error, Valid: true}
	} else {
		run.Status = entity.RunStatusCompleted
	}
	if err := s.deps.Runs.Update(ctx, run); err != nil {
		s.logger.Error("Failed to update pipeline run", logger.ErrorField(err), logger.StringField("batch_id", run.BatchID))
	}
}

func (s *suggestionPipeline) publish(ctx context.Context, result *dto.RunResult) {
	if s.deps.Events == nil {
		return
	}
	event := dto.BatchCompletedEvent{
		BatchID:          result.BatchID,
		Trigger:          result.Trigger,
		Outcome:          result.Outcome,
		SuggestionsCount: len(result.Suggestions),
		Suggestions:      result.Suggestions,
		Error:            result.Error,
		CompletedAt:      result.CompletedAt,
	}
	if err := s.deps.Events.PublishBatchCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish batch event", logger.ErrorField(err), logger.StringField("batch_id", result.BatchID))
	}
}

// dedupeArticles keeps the first article per URL and drops articles without one.
func dedupeArticles(articles []dto.Article) []dto.Article {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]dto.Article, 0, len(articles))
	for _, a := range articles {
		u := strings.TrimSpace(a.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		a.URL = u
		unique = append(unique, a)
	}
	return unique
}

func toSuggestions(rows []entity.StockSuggestion) ([]dto.Suggestion, error) {
	out := make([]dto.Suggestion, 0, len(rows))
	for _, row := range rows {
		suggestion := dto.Suggestion{
			StockCode:         row.StockCode,
			StockName:         row.StockName,
			AvgSentimentScore: row.AvgSentimentScore,
			ArticleCount:      row.ArticleCount,
			RelatedNewsIDs:    []uint{},
			Articles:          []dto.RepresentativeArticle{},
			BatchID:           row.BatchID,
			SuggestedFor:      row.SuggestedFor,
		}
		for _, part := range strings.Split(row.RelatedNewsIDs, ",") {
			if id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64); err == nil {
				suggestion.RelatedNewsIDs = append(suggestion.RelatedNewsIDs, uint(id))
			}
		}
		if len(row.ArticleDetails) > 0 {
			if err := json.Unmarshal(row.ArticleDetails, &suggestion.Articles); err != nil {
				return nil, fmt.Errorf("failed to decode article details of %s in batch %s: %w", row.StockCode, row.BatchID, err)
			}
		}
		out = append(out, suggestion)
	}
	return out, nil
}
