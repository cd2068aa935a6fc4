package entity

import (
	"database/sql"
	"time"
)

// PipelineRunStatus is the lifecycle status of a pipeline run.
type PipelineRunStatus string

const (
	RunStatusRunning   PipelineRunStatus = "running"
	RunStatusCompleted PipelineRunStatus = "completed"
	RunStatusFailed    PipelineRunStatus = "failed"
)

// PipelineRun records one execution of the suggestion pipeline.
type PipelineRun struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	BatchID           string            `gorm:"uniqueIndex;not null" json:"batch_id"`
	Trigger           string            `gorm:"not null" json:"trigger"`
	Status            PipelineRunStatus `gorm:"not null" json:"status"`
	Outcome           string            `json:"outcome"`
	ArticlesFetched   int               `json:"articles_fetched"`
	ArticlesProcessed int               `json:"articles_processed"`
	SuggestionsCount  int               `json:"suggestions_count"`
	ErrorMessage      sql.NullString    `json:"error_message" swaggertype:"string"`
	StartedAt         time.Time         `gorm:"not null" json:"started_at"`
	CompletedAt       sql.NullTime      `json:"completed_at" swaggertype:"string" format:"date-time"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
