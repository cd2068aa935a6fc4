package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-suggester/internal/entity"

	"gorm.io/gorm"
)

// PipelineRunRepository records pipeline runs.
type PipelineRunRepository interface {
	Create(ctx context.Context, run *entity.PipelineRun) error
	Update(ctx context.Context, run *entity.PipelineRun) error
	// FindLatest returns nil without error when no run was recorded.
	FindLatest(ctx context.Context) (*entity.PipelineRun, error)
}

// NewPipelineRunRepository creates a new instance of PipelineRunRepository.
func NewPipelineRunRepository(db *gorm.DB) PipelineRunRepository {
	return &pipelineRunRepository{db: db}
}

type pipelineRunRepository struct {
	db *gorm.DB
}

func (r *pipelineRunRepository) Create(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *pipelineRunRepository) Update(ctx context.Context, run *entity.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *pipelineRunRepository) FindLatest(ctx context.Context) (*entity.PipelineRun, error) {
	var run entity.PipelineRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest pipeline run: %w", err)
	}
	return &run, nil
}
