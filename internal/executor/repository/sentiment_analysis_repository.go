package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-suggester/internal/entity"

	"gorm.io/gorm"
)

// SentimentAnalysisRepository stores the one sentiment record of each article.
type SentimentAnalysisRepository interface {
	// FindByArticleID returns nil without error when the article has not been scored.
	FindByArticleID(ctx context.Context, articleID uint) (*entity.SentimentAnalysis, error)
	Create(ctx context.Context, analysis *entity.SentimentAnalysis) error
}

// NewSentimentAnalysisRepository creates a new instance of SentimentAnalysisRepository.
func NewSentimentAnalysisRepository(db *gorm.DB) SentimentAnalysisRepository {
	return &sentimentAnalysisRepository{db: db}
}

type sentimentAnalysisRepository struct {
	db *gorm.DB
}

func (r *sentimentAnalysisRepository) FindByArticleID(ctx context.Context, articleID uint) (*entity.SentimentAnalysis, error) {
	var analysis entity.SentimentAnalysis
	err := r.db.WithContext(ctx).Where("news_article_id = ?", articleID).First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sentiment analysis: %w", err)
	}
	return &analysis, nil
}

func (r *sentimentAnalysisRepository) Create(ctx context.Context, analysis *entity.SentimentAnalysis) error {
	if err := r.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return fmt.Errorf("failed to create sentiment analysis: %w", err)
	}
	return nil
}
