package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/internal/executor/repository"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/sqlite"
)

type keywordSentiment struct {
	mu      sync.Mutex
	calls   int
	scores  map[string]float64
	err     error
	panics  bool
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (k *keywordSentiment) Analyze(ctx context.Context, text string) (*dto.SentimentResult, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()

	if k.started != nil {
		k.once.Do(func() { close(k.started) })
		<-k.release
	}
	if k.panics {
		panic("model exploded")
	}
	if k.err != nil {
		return nil, k.err
	}
	for word, score := range k.scores {
		if strings.Contains(text, word) {
			return &dto.SentimentResult{Label: dto.SentimentPositive, Score: score, Confidence: score, Provider: dto.ProviderOpenAI, ModelName: "fake-model"}, nil
		}
	}
	return dto.NewSentimentResult(dto.SentimentNeutral, 0.5, dto.ProviderOpenAI, "fake-model"), nil
}

func (k *keywordSentiment) IsConfigured() bool              { return true }
func (k *keywordSentiment) Provider() dto.SentimentProvider { return dto.ProviderOpenAI }
func (k *keywordSentiment) ModelName() string               { return "fake-model" }

func (k *keywordSentiment) callCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(string) []string { panic("bad regex") }

type stubSource struct {
	name     string
	articles []dto.Article
	err      error
}

func (s stubSource) Name() string       { return s.name }
func (s stubSource) IsConfigured() bool { return true }
func (s stubSource) Fetch(context.Context, int, int) ([]dto.Article, error) {
	return s.articles, s.err
}

type recordedEvents struct {
	mu     sync.Mutex
	events []dto.BatchCompletedEvent
}

func (r *recordedEvents) PublishBatchCompleted(_ context.Context, event dto.BatchCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (func(), error) { return nil, repository.ErrRunLocked }

func newPipelineTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entity.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func pipelineRegistry() *SymbolRegistry {
	return NewSymbolRegistry([]SymbolEntry{
		{Code: "INFY", Name: "Infosys Limited", Aliases: []string{"INFOSYS"}},
		{Code: "TCS", Name: "Tata Consultancy Services"},
		{Code: "WIPRO", Name: "Wipro Limited"},
	}, "test")
}

func pipelineConfig() config.Pipeline {
	return config.Pipeline{
		MinSentimentScore: 0.6,
		MaxSuggestions:    10,
		LookbackDays:      7,
		MaxConcurrent:     3,
		BatchWindow:       time.Minute,
	}
}

func newTestPipeline(t *testing.T, db *gorm.DB, sentiment repository.SentimentRepository, mutate func(*PipelineDeps)) SuggestionPipeline {
	t.Helper()
	deps := PipelineDeps{
		Registry:    pipelineRegistry(),
		Sentiment:   sentiment,
		Articles:    repository.NewNewsArticleRepository(db),
		Sentiments:  repository.NewSentimentAnalysisRepository(db),
		Suggestions: repository.NewStockSuggestionRepository(db),
		Runs:        repository.NewPipelineRunRepository(db),
		MaxArticles: 50,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewSuggestionPipeline(deps, pipelineConfig(), logger.NewNop())
}

func sampleArticles() []dto.Article {
	now := time.Now()
	return []dto.Article{
		{Title: "Infosys shares jump on deal", URL: "https://news.test/a", Source: "wire", PublishedAt: now},
		{Title: "NSE: TCS and NSE: INFY rally", URL: "https://news.test/b", Source: "wire", PublishedAt: now},
		{Title: "Infosys shares jump on deal (repost)", URL: "https://news.test/a", Source: "other", PublishedAt: now},
		{Title: "No link here, TCS", URL: "", Source: "wire", PublishedAt: now},
		{Title: "NSE: WIPRO slumps", URL: "https://news.test/e", Source: "wire", PublishedAt: now},
	}
}

func sampleScores() map[string]float64 {
	return map[string]float64{"deal": 0.9, "rally": 0.8, "slumps": 0.2}
}

func TestSuggestionPipeline_Run(t *testing.T) {
	db := newPipelineTestDB(t)
	sentiment := &keywordSentiment{scores: sampleScores()}
	pipeline := newTestPipeline(t, db, sentiment, nil)

	result, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, dto.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 5, result.ArticlesFetched)
	assert.Equal(t, 3, result.ArticlesProcessed)
	assert.NotEmpty(t, result.BatchID)
	require.Len(t, result.Suggestions, 2)

	infy := result.Suggestions[0]
	assert.Equal(t, "INFY", infy.StockCode)
	assert.Equal(t, "Infosys Limited", infy.StockName)
	assert.InDelta(t, 0.85, infy.AvgSentimentScore, 1e-9)
	assert.Equal(t, 2, infy.ArticleCount)
	assert.Len(t, infy.RelatedNewsIDs, 2)
	require.Len(t, infy.Articles, 2)
	assert.Equal(t, "Infosys shares jump on deal", infy.Articles[0].Title)

	assert.Equal(t, "TCS", result.Suggestions[1].StockCode)
	assert.InDelta(t, 0.8, result.Suggestions[1].AvgSentimentScore, 1e-9)

	var articles, mentions, analyses int64
	require.NoError(t, db.Model(&entity.NewsArticle{}).Count(&articles).Error)
	require.NoError(t, db.Model(&entity.StockMention{}).Count(&mentions).Error)
	require.NoError(t, db.Model(&entity.SentimentAnalysis{}).Count(&analyses).Error)
	assert.EqualValues(t, 3, articles)
	assert.EqualValues(t, 4, mentions)
	assert.EqualValues(t, 3, analyses)

	latest, err := pipeline.LatestBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, result.BatchID, latest[0].BatchID)
	assert.Equal(t, "INFY", latest[0].StockCode)
	assert.ElementsMatch(t, infy.RelatedNewsIDs, latest[0].RelatedNewsIDs)
	require.Len(t, latest[0].Articles, 2)
	assert.Equal(t, "wire", latest[0].Articles[0].Source)

	today, err := pipeline.SuggestionsFor(context.Background(), time.Now(), 0.81, 10)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "INFY", today[0].StockCode)
}

func TestSuggestionPipeline_RunIsIdempotent(t *testing.T) {
	db := newPipelineTestDB(t)
	sentiment := &keywordSentiment{scores: sampleScores()}
	pipeline := newTestPipeline(t, db, sentiment, nil)
	ctx := context.Background()

	first, err := pipeline.Run(ctx, sampleArticles(), dto.RunOptions{})
	require.NoError(t, err)
	calls := sentiment.callCount()
	assert.Equal(t, 3, calls)

	second, err := pipeline.Run(ctx, sampleArticles(), dto.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, calls, sentiment.callCount(), "stored sentiment is reused")
	assert.NotEqual(t, first.BatchID, second.BatchID)
	require.Len(t, second.Suggestions, len(first.Suggestions))
	for i := range first.Suggestions {
		assert.Equal(t, first.Suggestions[i].StockCode, second.Suggestions[i].StockCode)
		assert.Equal(t, first.Suggestions[i].AvgSentimentScore, second.Suggestions[i].AvgSentimentScore)
		assert.Equal(t, first.Suggestions[i].RelatedNewsIDs, second.Suggestions[i].RelatedNewsIDs)
	}

	var articles, analyses, suggestions int64
	require.NoError(t, db.Model(&entity.NewsArticle{}).Count(&articles).Error)
	require.NoError(t, db.Model(&entity.SentimentAnalysis{}).Count(&analyses).Error)
	require.NoError(t, db.Model(&entity.StockSuggestion{}).Count(&suggestions).Error)
	assert.EqualValues(t, 3, articles)
	assert.EqualValues(t, 3, analyses)
	assert.EqualValues(t, 4, suggestions, "each run stores its own batch")
}

func TestSuggestionPipeline_RunOptionsOverrideConfig(t *testing.T) {
	db := newPipelineTestDB(t)
	pipeline := newTestPipeline(t, db, &keywordSentiment{scores: sampleScores()}, nil)

	result, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{MinScore: 0.1, MaxSuggestions: 1})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "INFY", result.Suggestions[0].StockCode)

	result, err = pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{MinScore: 0.1})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 3)
	assert.Equal(t, "WIPRO", result.Suggestions[2].StockCode)
}

func TestSuggestionPipeline_ProviderFailureRecordsNeutral(t *testing.T) {
	tests := []struct {
		name      string
		sentiment *keywordSentiment
	}{
		{name: "error", sentiment: &keywordSentiment{err: errors.New("rate limited")}},
		{name: "panic", sentiment: &keywordSentiment{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newPipelineTestDB(t)
			pipeline := newTestPipeline(t, db, tt.sentiment, nil)

			result, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
			require.NoError(t, err)
			assert.Equal(t, dto.OutcomeNoSuggestions, result.Outcome)
			assert.Equal(t, 3, result.ArticlesProcessed)
			assert.Empty(t, result.Suggestions)

			var analyses []entity.SentimentAnalysis
			require.NoError(t, db.Find(&analyses).Error)
			require.Len(t, analyses, 3)
			for _, a := range analyses {
				assert.Equal(t, "neutral", a.SentimentLabel)
				assert.Equal(t, 0.5, a.SentimentScore)
				assert.Equal(t, "openai", a.Provider)
				require.NotNil(t, a.ModelName)
				assert.Equal(t, "fake-model", *a.ModelName)
			}
		})
	}
}

func TestSuggestionPipeline_ExtractionPanicIsContained(t *testing.T) {
	db := newPipelineTestDB(t)
	pipeline := newTestPipeline(t, db, &keywordSentiment{scores: sampleScores()}, func(d *PipelineDeps) {
		d.Extractor = panickingExtractor{}
	})

	result, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeNoSuggestions, result.Outcome)
	assert.Equal(t, 3, result.ArticlesProcessed)

	var mentions int64
	require.NoError(t, db.Model(&entity.StockMention{}).Count(&mentions).Error)
	assert.Zero(t, mentions)
}

func TestSuggestionPipeline_NoArticles(t *testing.T) {
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{}, nil)

	result, err := pipeline.Run(context.Background(), []dto.Article{{Title: "no url"}}, dto.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeNoArticles, result.Outcome)
	assert.NotNil(t, result.Suggestions)
	assert.Empty(t, result.Suggestions)
}

func TestSuggestionPipeline_CancelledRunFails(t *testing.T) {
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{scores: sampleScores()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pipeline.Run(ctx, sampleArticles(), dto.RunOptions{})
	require.Error(t, err)
	assert.Equal(t, dto.OutcomeFailed, result.Outcome)
	assert.NotEmpty(t, result.Error)
}

func TestSuggestionPipeline_RejectsConcurrentRun(t *testing.T) {
	sentiment := &keywordSentiment{
		scores:  sampleScores(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	pipeline := newTestPipeline(t, newPipelineTestDB(t), sentiment, nil)

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
		done <- err
	}()

	<-sentiment.started
	_, err := pipeline.RunNow(context.Background(), dto.TriggerManual, dto.RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(sentiment.release)
	require.NoError(t, <-done)
}

func TestSuggestionPipeline_RunNow(t *testing.T) {
	db := newPipelineTestDB(t)
	events := &recordedEvents{}
	old := dto.Article{
		Title:       "NSE: TCS rally last month",
		URL:         "https://news.test/old",
		PublishedAt: time.Now().AddDate(0, 0, -30),
	}

	pipeline := newTestPipeline(t, db, &keywordSentiment{scores: sampleScores()}, func(d *PipelineDeps) {
		d.Events = events
		d.Sources = []repository.NewsSourceRepository{
			stubSource{name: "wire", articles: append(sampleArticles(), old)},
			stubSource{name: "broken", err: errors.New("feed down")},
		}
	})

	result, err := pipeline.RunNow(context.Background(), dto.TriggerScheduled, dto.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, dto.TriggerScheduled, result.Trigger)
	assert.Equal(t, dto.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 5, result.ArticlesFetched, "old article is outside the lookback window")
	require.Len(t, result.Suggestions, 2)

	run, err := pipeline.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, result.BatchID, run.BatchID)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.Equal(t, "completed", run.Outcome)
	assert.Equal(t, "scheduled", run.Trigger)
	assert.Equal(t, 2, run.SuggestionsCount)
	assert.Equal(t, 3, run.ArticlesProcessed)
	assert.True(t, run.CompletedAt.Valid)

	require.Len(t, events.events, 1)
	assert.Equal(t, result.BatchID, events.events[0].BatchID)
	assert.Equal(t, 2, events.events[0].SuggestionsCount)
	assert.Len(t, events.events[0].Suggestions, 2)

	batch, err := pipeline.Batch(context.Background(), result.BatchID)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestSuggestionPipeline_RunNowWithoutArticles(t *testing.T) {
	events := &recordedEvents{}
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{}, func(d *PipelineDeps) {
		d.Events = events
		d.Sources = []repository.NewsSourceRepository{stubSource{name: "empty"}}
	})

	result, err := pipeline.RunNow(context.Background(), dto.TriggerManual, dto.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeNoArticles, result.Outcome)
	require.Len(t, events.events, 1)
	assert.Equal(t, dto.OutcomeNoArticles, events.events[0].Outcome)
}

func TestSuggestionPipeline_RunNowHonoursDistributedLock(t *testing.T) {
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{}, func(d *PipelineDeps) {
		d.RunLock = heldLock{}
	})

	_, err := pipeline.RunNow(context.Background(), dto.TriggerScheduled, dto.RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	run, err := pipeline.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSuggestionPipeline_RunHonoursDistributedLock(t *testing.T) {
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{scores: sampleScores()}, func(d *PipelineDeps) {
		d.RunLock = heldLock{}
	})

	_, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestSuggestionPipeline_RunRecordsBatch(t *testing.T) {
	events := &recordedEvents{}
	pipeline := newTestPipeline(t, newPipelineTestDB(t), &keywordSentiment{scores: sampleScores()}, func(d *PipelineDeps) {
		d.Events = events
	})

	result, err := pipeline.Run(context.Background(), sampleArticles(), dto.RunOptions{})
	require.NoError(t, err)

	run, err := pipeline.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, result.BatchID, run.BatchID)
	assert.Equal(t, "manual", run.Trigger)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, result.BatchID, events.events[0].BatchID)
}

func TestToSuggestions_CorruptArticleDetails(t *testing.T) {
	rows := []entity.StockSuggestion{
		{StockCode: "INFY", BatchID: "b1", RelatedNewsIDs: "1,2", ArticleDetails: datatypes.JSON(`[{"title":"ok"}]`)},
		{StockCode: "TCS", BatchID: "b1", ArticleDetails: datatypes.JSON(`[{"title":`)},
	}

	_, err := toSuggestions(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TCS")

	got, err := toSuggestions(rows[:1])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []uint{1, 2}, got[0].RelatedNewsIDs)
	require.Len(t, got[0].Articles, 1)
}

func TestDedupeArticles(t *testing.T) {
	got := dedupeArticles([]dto.Article{
		{URL: " https://a "},
		{URL: "https://a", Title: "dup"},
		{URL: ""},
		{URL: "https://b"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "https://a", got[0].URL)
	assert.Empty(t, got[0].Title)
	assert.Equal(t, "https://b", got[1].URL)
}
