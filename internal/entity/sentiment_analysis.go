package entity

import "time"

// SentimentAnalysis is the single sentiment record of a news article.
type SentimentAnalysis struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	NewsArticleID  uint      `gorm:"uniqueIndex;not null" json:"news_article_id"`
	SentimentScore float64   `gorm:"not null" json:"sentiment_score"`
	SentimentLabel string    `gorm:"not null" json:"sentiment_label"`
	Confidence     float64   `gorm:"not null" json:"confidence"`
	Provider       string    `gorm:"not null" json:"provider"`
	ModelName      *string   `json:"model_name,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SentimentAnalysis) TableName() string {
	return "sentiment_analyses"
}
