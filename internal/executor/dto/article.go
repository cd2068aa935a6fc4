package dto

import "time"

// Article is a news item handed to the pipeline by a news source.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}

// AnalysisText is the text that extraction and sentiment analysis run against.
func (a Article) AnalysisText() string {
	return a.Title + ". " + a.Content
}
