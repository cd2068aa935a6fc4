package entity

import (
	"time"
)

// NewsArticle represents a news article seen by the suggestion pipeline.
type NewsArticle struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	URL           string         `gorm:"column:url;uniqueIndex;not null" json:"url"`
	Source        string         `json:"source"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	Content       *string        `json:"content,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	StockMentions []StockMention `gorm:"foreignKey:NewsArticleID" json:"stock_mentions"`
}

// TableName specifies the table name for the NewsArticle model.
func (NewsArticle) TableName() string {
	return "news_articles"
}

// MentionedCodes returns the stock codes stored for the article.
func (n *NewsArticle) MentionedCodes() []string {
	codes := make([]string, 0, len(n.StockMentions))
	for _, m := range n.StockMentions {
		codes = append(codes, m.StockCode)
	}
	return codes
}

// StockMention represents a validated mention of a stock in a news article.
type StockMention struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	NewsArticleID uint      `gorm:"index;not null" json:"news_article_id"`
	StockCode     string    `gorm:"not null" json:"stock_code"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (StockMention) TableName() string {
	return "stock_mentions"
}
