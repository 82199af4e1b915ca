package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/scheduler/config"
	"golang-stock-screener/internal/scheduler/dto"
	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"gorm.io/datatypes"
)

// JobService keeps the stored jobs in line with the configured job definitions.
type JobService interface {
	// Sync upserts every configured job and its schedule.
	Sync(ctx context.Context) error
	// List returns every scheduled job.
	List(ctx context.Context) ([]dto.JobSummary, error)
}

// NewJobService creates a new job service.
func NewJobService(
	cfg *config.Config,
	jobRepo repository.JobRepository,
	scheduleRepo repository.TaskScheduleRepository,
	log *logger.Logger,
) JobService {
	return &jobService{
		cfg:          cfg,
		jobRepo:      jobRepo,
		scheduleRepo: scheduleRepo,
		logger:       log,
		location:     utils.GetISTLocation(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type jobService struct {
	cfg          *config.Config
	jobRepo      repository.JobRepository
	scheduleRepo repository.TaskScheduleRepository
	logger       *logger.Logger
	location     *time.Location
	now          func() time.Time
}

func (s *jobService) Sync(ctx context.Context) error {
	for _, def := range s.cfg.Scheduler.Jobs {
		job, err := s.syncJob(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to sync job %s: %w", def.Name, err)
		}
		if err := s.syncSchedule(ctx, job, def); err != nil {
			return fmt.Errorf("failed to sync schedule of %s: %w", def.Name, err)
		}
	}
	return nil
}

func (s *jobService) syncJob(ctx context.Context, def config.JobDefinition) (*entity.Job, error) {
	payload, err := jobPayload(def)
	if err != nil {
		return nil, err
	}
	timeout := int(def.Timeout.Seconds())
	if timeout <= 0 {
		timeout = int(defaultJobTimeout.Seconds())
	}

	job, err := s.jobRepo.FindByName(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	if job == nil {
		job = &entity.Job{
			Name:        def.Name,
			Description: def.Description,
			Type:        def.Type,
			Payload:     payload,
			Timeout:     timeout,
		}
		if err := s.jobRepo.Create(ctx, job); err != nil {
			return nil, err
		}
		s.logger.Info("Job created", logger.StringField("job", job.Name), logger.StringField("type", string(job.Type)))
		return job, nil
	}

	job.Description = def.Description
	job.Type = def.Type
	job.Payload = payload
	job.Timeout = timeout
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// syncSchedule creates the schedule of a new job. For an existing schedule the
// cron expression is updated, and a disabled definition pauses it; a schedule
// paused by an operator stays paused.
func (s *jobService) syncSchedule(ctx context.Context, job *entity.Job, def config.JobDefinition) error {
	schedule, err := s.scheduleRepo.FindByJobID(ctx, job.ID)
	if err != nil {
		return err
	}

	if schedule == nil {
		next, err := NextExecution(def.Cron, s.now(), s.location)
		if err != nil {
			return err
		}
		schedule = &entity.TaskSchedule{
			JobID:          job.ID,
			CronExpression: def.Cron,
			IsActive:       true,
			NextExecution:  sql.NullTime{Time: next, Valid: true},
		}
		if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
			return err
		}
		if def.Disabled {
			return s.scheduleRepo.SetActive(ctx, job.ID, false)
		}
		return nil
	}

	changed := false
	if schedule.CronExpression != def.Cron || !schedule.NextExecution.Valid {
		next, err := NextExecution(def.Cron, s.now(), s.location)
		if err != nil {
			return err
		}
		schedule.CronExpression = def.Cron
		schedule.NextExecution = sql.NullTime{Time: next, Valid: true}
		changed = true
	}
	if def.Disabled && schedule.IsActive {
		schedule.IsActive = false
		changed = true
	}
	if !changed {
		return nil
	}

	s.logger.Info("Schedule updated",
		logger.StringField("job", job.Name),
		logger.StringField("cron", schedule.CronExpression),
		logger.Field("active", schedule.IsActive),
	)
	return s.scheduleRepo.Update(ctx, schedule)
}

func (s *jobService) List(ctx context.Context) ([]dto.JobSummary, error) {
	schedules, err := s.scheduleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.JobSummary, 0, len(schedules))
	for _, schedule := range schedules {
		if schedule.Job == nil {
			continue
		}
		summaries = append(summaries, dto.JobSummary{
			ID:             schedule.Job.ID,
			Name:           schedule.Job.Name,
			Type:           string(schedule.Job.Type),
			CronExpression: schedule.CronExpression,
			IsActive:       schedule.IsActive,
			Timeout:        schedule.Job.Timeout,
			NextExecution:  nullTimePtr(schedule.NextExecution),
			LastExecution:  nullTimePtr(schedule.LastExecution),
		})
	}
	return summaries, nil
}

func jobPayload(def config.JobDefinition) (datatypes.JSON, error) {
	symbols := utils.UniqueUpper(def.Symbols)
	if len(symbols) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(map[string][]string{"symbols": symbols})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
