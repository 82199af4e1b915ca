package repository

import (
	"context"
	"errors"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	FindByName(ctx context.Context, name string) (*entity.Job, error)
	Update(ctx context.Context, job *entity.Job) error
}

// NewJobRepository creates a new GORM-based job repository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

type jobRepository struct {
	db *gorm.DB
}

// Create creates a new job in the database.
func (r *jobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByName retrieves a job by its unique name. It returns nil when no job exists.
func (r *jobRepository) FindByName(ctx context.Context, name string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Update updates an existing job.
func (r *jobRepository) Update(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}
