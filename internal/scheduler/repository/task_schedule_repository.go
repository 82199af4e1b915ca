package repository

import (
	"context"
	"errors"
	"time"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskScheduleRepository defines the interface for task schedule data operations.
type TaskScheduleRepository interface {
	Create(ctx context.Context, schedule *entity.TaskSchedule) error
	FindByJobID(ctx context.Context, jobID uint) (*entity.TaskSchedule, error)
	FindAll(ctx context.Context) ([]entity.TaskSchedule, error)
	Update(ctx context.Context, schedule *entity.TaskSchedule) error
	SetActive(ctx context.Context, jobID uint, active bool) error
	FindDue(ctx context.Context, now time.Time) ([]entity.TaskSchedule, error)
}

// NewTaskScheduleRepository creates a new GORM-based task schedule repository.
func NewTaskScheduleRepository(db *gorm.DB) TaskScheduleRepository {
	return &taskScheduleRepository{db: db}
}

type taskScheduleRepository struct {
	db *gorm.DB
}

// Create creates a new task schedule.
func (r *taskScheduleRepository) Create(ctx context.Context, schedule *entity.TaskSchedule) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(schedule).Error
}

// FindByJobID retrieves the schedule of a job. It returns nil when the job has none.
func (r *taskScheduleRepository) FindByJobID(ctx context.Context, jobID uint) (*entity.TaskSchedule, error) {
	var schedule entity.TaskSchedule
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindAll retrieves all task schedules with their jobs.
func (r *taskScheduleRepository) FindAll(ctx context.Context) ([]entity.TaskSchedule, error) {
	var schedules []entity.TaskSchedule
	if err := r.db.WithContext(ctx).Preload("Job").Order("id").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// Update updates a task schedule without touching its job.
func (r *taskScheduleRepository) Update(ctx context.Context, schedule *entity.TaskSchedule) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(schedule).Error
}

// SetActive pauses or resumes the schedule of a job.
func (r *taskScheduleRepository) SetActive(ctx context.Context, jobID uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&entity.TaskSchedule{}).
		Where("job_id = ?", jobID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindDue finds all active schedules whose next execution is at or before now.
func (r *taskScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]entity.TaskSchedule, error) {
	var schedules []entity.TaskSchedule
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("is_active = ? AND (next_execution IS NULL OR next_execution <= ?)", true, now).
		Order("id").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
