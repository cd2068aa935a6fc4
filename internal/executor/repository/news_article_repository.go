package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-suggester/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsArticleRepository defines the interface for interacting with news article data.
type NewsArticleRepository interface {
	// FindByURL returns nil without error when no article has the url.
	FindByURL(ctx context.Context, url string) (*entity.NewsArticle, error)
	// CreateIgnoreConflict inserts the article and its mentions in one
	// transaction. It reports false when an article with the same url exists.
	CreateIgnoreConflict(ctx context.Context, article *entity.NewsArticle) (bool, error)
}

// NewNewsArticleRepository creates a new instance of NewsArticleRepository.
func NewNewsArticleRepository(db *gorm.DB) NewsArticleRepository {
	return &newsArticleRepository{
		db: db,
	}
}

type newsArticleRepository struct {
	db *gorm.DB
}

func (r *newsArticleRepository) FindByURL(ctx context.Context, url string) (*entity.NewsArticle, error) {
	var article entity.NewsArticle
	err := r.db.WithContext(ctx).
		Preload("StockMentions", func(db *gorm.DB) *gorm.DB { return db.Order("stock_code") }).
		Where("url = ?", url).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find news article by url: %w", err)
	}
	return &article, nil
}

func (r *newsArticleRepository) CreateIgnoreConflict(ctx context.Context, article *entity.NewsArticle) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mentions := article.StockMentions
		article.StockMentions = nil
		defer func() { article.StockMentions = mentions }()

		txInner := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).Create(article)
		if txInner.Error != nil {
			return txInner.Error
		}
		if txInner.RowsAffected == 0 {
			return nil
		}
		created = true

		if len(mentions) == 0 {
			return nil
		}
		for i := range mentions {
			mentions[i].NewsArticleID = article.ID
		}
		if err := tx.Create(&mentions).Error; err != nil {
			return fmt.Errorf("insert stock_mentions error: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create news article: %w", err)
	}
	return created, nil
}
