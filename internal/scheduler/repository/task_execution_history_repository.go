package repository

import (
	"context"
	"time"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
)

// TaskExecutionHistoryRepository defines the interface for task execution history data operations.
type TaskExecutionHistoryRepository interface {
	Create(ctx context.Context, history *entity.TaskExecutionHistory) error
	Update(ctx context.Context, history *entity.TaskExecutionHistory) error
	HasRunningSince(ctx context.Context, jobID uint, since time.Time) (bool, error)
	FindRecent(ctx context.Context, jobID uint, limit int) ([]entity.TaskExecutionHistory, error)
}

// NewTaskExecutionHistoryRepository creates a new GORM-based task execution history repository.
func NewTaskExecutionHistoryRepository(db *gorm.DB) TaskExecutionHistoryRepository {
	return &taskExecutionHistoryRepository{db: db}
}

type taskExecutionHistoryRepository struct {
	db *gorm.DB
}

// Create creates a new task execution history record.
func (r *taskExecutionHistoryRepository) Create(ctx context.Context, history *entity.TaskExecutionHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// Update update task execution history record
func (r *taskExecutionHistoryRepository) Update(ctx context.Context, history *entity.TaskExecutionHistory) error {
	return r.db.WithContext(ctx).Save(history).Error
}

// HasRunningSince reports whether the job has a RUNNING execution started at or after since.
func (r *taskExecutionHistoryRepository) HasRunningSince(ctx context.Context, jobID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.TaskExecutionHistory{}).
		Where("job_id = ? AND status = ? AND started_at >= ?", jobID, entity.StatusRunning, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindRecent retrieves the latest executions, newest first. A zero jobID means all jobs.
func (r *taskExecutionHistoryRepository) FindRecent(ctx context.Context, jobID uint, limit int) ([]entity.TaskExecutionHistory, error) {
	query := r.db.WithContext(ctx).Order("started_at desc").Order("id desc")
	if jobID != 0 {
		query = query.Where("job_id = ?", jobID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var histories []entity.TaskExecutionHistory
	if err := query.Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}
