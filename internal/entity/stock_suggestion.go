package entity

import (
	"time"

	"gorm.io/datatypes"
)

// StockSuggestion represents one ranked stock of a pipeline batch.
type StockSuggestion struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	BatchID           string         `gorm:"index;not null" json:"batch_id"`
	StockCode         string         `gorm:"index;not null" json:"stock_code"`
	StockName         string         `json:"stock_name"`
	AvgSentimentScore float64        `gorm:"not null" json:"avg_sentiment_score"`
	ArticleCount      int            `gorm:"not null" json:"article_count"`
	RelatedNewsIDs    string         `json:"related_news_ids"`
	ArticleDetails    datatypes.JSON `json:"article_details"`
	SuggestedFor      time.Time      `gorm:"index;not null" json:"suggested_for"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the StockSuggestion model.
func (StockSuggestion) TableName() string {
	return "stock_suggestions"
}
