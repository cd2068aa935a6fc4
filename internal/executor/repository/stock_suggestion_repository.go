package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-stock-suggester/internal/entity"
	"golang-stock-suggester/pkg/utils"

	"gorm.io/gorm"
)

// StockSuggestionRepository defines the interface for interacting with stock suggestion data.
type StockSuggestionRepository interface {
	Create(ctx context.Context, suggestion *entity.StockSuggestion) error
	// FindForDate returns suggestions of the calendar day of date (in date's
	// location) scoring at least minScore, best first.
	FindForDate(ctx context.Context, date time.Time, minScore float64, limit int) ([]entity.StockSuggestion, error)
	// FindLatestBatch returns the suggestions of the most recent batch in rank order.
	// Rows without a batch id are grouped by suggested_for within window of the newest row.
	FindLatestBatch(ctx context.Context, window time.Duration) ([]entity.StockSuggestion, error)
	FindByBatchID(ctx context.Context, batchID string) ([]entity.StockSuggestion, error)
}

// NewStockSuggestionRepository creates a new instance of StockSuggestionRepository.
func NewStockSuggestionRepository(db *gorm.DB) StockSuggestionRepository {
	return &stockSuggestionRepository{db: db}
}

type stockSuggestionRepository struct {
	db *gorm.DB
}

func (r *stockSuggestionRepository) Create(ctx context.Context, suggestion *entity.StockSuggestion) error {
	if err := r.db.WithContext(ctx).Create(suggestion).Error; err != nil {
		return fmt.Errorf("failed to create stock suggestion: %w", err)
	}
	return nil
}

func (r *stockSuggestionRepository) FindForDate(ctx context.Context, date time.Time, minScore float64, limit int) ([]entity.StockSuggestion, error) {
	start, end := utils.DayBounds(date)

	var suggestions []entity.StockSuggestion
	q := r.db.WithContext(ctx).
		Where("suggested_for >= ? AND suggested_for < ?", start.UTC(), end.UTC()).
		Where("avg_sentiment_score >= ?", minScore).
		Order("avg_sentiment_score DESC").
		Order("article_count DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("failed to find suggestions for date: %w", err)
	}
	return suggestions, nil
}

func (r *stockSuggestionRepository) FindLatestBatch(ctx context.Context, window time.Duration) ([]entity.StockSuggestion, error) {
	var newest entity.StockSuggestion
	err := r.db.WithContext(ctx).Order("suggested_for DESC").Order("id DESC").First(&newest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []entity.StockSuggestion{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find newest suggestion: %w", err)
	}

	q := r.db.WithContext(ctx)
	if newest.BatchID != "" {
		q = q.Where("batch_id = ?", newest.BatchID)
	} else {
		q = q.Where("suggested_for BETWEEN ? AND ?", newest.SuggestedFor.Add(-window), newest.SuggestedFor.Add(window))
	}

	var suggestions []entity.StockSuggestion
	if err := q.Order("id ASC").Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("failed to find latest batch: %w", err)
	}
	return suggestions, nil
}

func (r *stockSuggestionRepository) FindByBatchID(ctx context.Context, batchID string) ([]entity.StockSuggestion, error) {
	var suggestions []entity.StockSuggestion
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("id ASC").Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("failed to find suggestions of batch %s: %w", batchID, err)
	}
	return suggestions, nil
}
