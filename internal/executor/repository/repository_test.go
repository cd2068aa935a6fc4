package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/pkg/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
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

func TestNewsArticleRepository_CreateIgnoreConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewNewsArticleRepository(newTestDB(t))

	content := "Infosys shares rallied"
	article := &entity.NewsArticle{
		Title:   "Infosys rallies",
		URL:     "https://example.com/infy",
		Source:  "test",
		Content: &content,
		StockMentions: []entity.StockMention{
			{StockCode: "WIPRO"},
			{StockCode: "INFY"},
		},
	}

	created, err := repo.CreateIgnoreConflict(ctx, article)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, article.ID)
	assert.Len(t, article.StockMentions, 2)

	duplicate := &entity.NewsArticle{
		Title:         "Different title",
		URL:           "https://example.com/infy",
		StockMentions: []entity.StockMention{{StockCode: "TCS"}},
	}
	created, err = repo.CreateIgnoreConflict(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindByURL(ctx, "https://example.com/infy")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, article.ID, found.ID)
	assert.Equal(t, "Infosys rallies", found.Title)
	assert.Equal(t, []string{"INFY", "WIPRO"}, found.MentionedCodes())

	missing, err := repo.FindByURL(ctx, "https://example.com/none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNewsArticleRepository_NoMentions(t *testing.T) {
	ctx := context.Background()
	repo := NewNewsArticleRepository(newTestDB(t))

	created, err := repo.CreateIgnoreConflict(ctx, &entity.NewsArticle{Title: "t", URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.True(t, created)

	found, err := repo.FindByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Empty(t, found.MentionedCodes())
}

func TestSentimentAnalysisRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	articles := NewNewsArticleRepository(db)
	repo := NewSentimentAnalysisRepository(db)

	article := &entity.NewsArticle{Title: "t", URL: "https://example.com/a"}
	_, err := articles.CreateIgnoreConflict(ctx, article)
	require.NoError(t, err)

	found, err := repo.FindByArticleID(ctx, article.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	model := "gpt-test"
	require.NoError(t, repo.Create(ctx, &entity.SentimentAnalysis{
		NewsArticleID:  article.ID,
		SentimentScore: 0.8,
		SentimentLabel: "positive",
		Confidence:     0.6,
		Provider:       "openai",
		ModelName:      &model,
	}))

	found, err = repo.FindByArticleID(ctx, article.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 0.8, found.SentimentScore)
	assert.Equal(t, "gpt-test", *found.ModelName)

	err = repo.Create(ctx, &entity.SentimentAnalysis{NewsArticleID: article.ID, SentimentLabel: "neutral", Provider: "local"})
	assert.Error(t, err, "one record per article")
}

func TestStockSuggestionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStockSuggestionRepository(newTestDB(t))

	day1 := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	rows := []entity.StockSuggestion{
		{BatchID: "b1", StockCode: "INFY", AvgSentimentScore: 0.7, ArticleCount: 2, SuggestedFor: day1},
		{BatchID: "b1", StockCode: "TCS", AvgSentimentScore: 0.9, ArticleCount: 1, SuggestedFor: day1},
		{BatchID: "b1", StockCode: "ITC", AvgSentimentScore: 0.65, ArticleCount: 4, SuggestedFor: day1},
		{BatchID: "b2", StockCode: "WIPRO", AvgSentimentScore: 0.8, ArticleCount: 3, SuggestedFor: day2, ArticleDetails: datatypes.JSON(`[{"title":"x"}]`)},
		{BatchID: "b2", StockCode: "LT", AvgSentimentScore: 0.75, ArticleCount: 1, SuggestedFor: day2},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	forDay, err := repo.FindForDate(ctx, day1, 0.68, 10)
	require.NoError(t, err)
	require.Len(t, forDay, 2)
	assert.Equal(t, "TCS", forDay[0].StockCode)
	assert.Equal(t, "INFY", forDay[1].StockCode)

	limited, err := repo.FindForDate(ctx, day1, 0, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := repo.FindForDate(ctx, day1.AddDate(0, 0, 5), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	latest, err := repo.FindLatestBatch(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "WIPRO", latest[0].StockCode)
	assert.Equal(t, "LT", latest[1].StockCode)
	assert.JSONEq(t, `[{"title":"x"}]`, string(latest[0].ArticleDetails))

	batch, err := repo.FindByBatchID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "INFY", batch[0].StockCode)

	missing, err := repo.FindByBatchID(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStockSuggestionRepository_LatestBatchWindow(t *testing.T) {
	ctx := context.Background()
	repo := NewStockSuggestionRepository(newTestDB(t))

	empty, err := repo.FindLatestBatch(ctx, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base.Add(-time.Hour), base, base.Add(30 * time.Second)} {
		require.NoError(t, repo.Create(ctx, &entity.StockSuggestion{
			StockCode:         []string{"OLD", "A", "B"}[i],
			AvgSentimentScore: 0.7,
			ArticleCount:      1,
			SuggestedFor:      at,
		}))
	}

	latest, err := repo.FindLatestBatch(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "A", latest[0].StockCode)
	assert.Equal(t, "B", latest[1].StockCode)
}

func TestPipelineRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPipelineRunRepository(newTestDB(t))

	none, err := repo.FindLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	started := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	first := &entity.PipelineRun{BatchID: "b1", Trigger: "scheduled", Status: entity.RunStatusRunning, StartedAt: started}
	require.NoError(t, repo.Create(ctx, first))
	second := &entity.PipelineRun{BatchID: "b2", Trigger: "manual", Status: entity.RunStatusRunning, StartedAt: started.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, second))

	second.Status = entity.RunStatusCompleted
	second.Outcome = "no_suggestions"
	second.CompletedAt = sql.NullTime{Time: started.Add(2 * time.Hour), Valid: true}
	require.NoError(t, repo.Update(ctx, second))

	latest, err := repo.FindLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b2", latest.BatchID)
	assert.Equal(t, entity.RunStatusCompleted, latest.Status)
	assert.Equal(t, "no_suggestions", latest.Outcome)
	assert.True(t, latest.CompletedAt.Valid)
}
