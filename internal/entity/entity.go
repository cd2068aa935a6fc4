package entity

// Models lists every persisted model, in dependency order, for gorm AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&NewsArticle{},
		&StockMention{},
		&SentimentAnalysis{},
		&StockSuggestion{},
		&PipelineRun{},
	}
}
