package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/scheduler/config"
	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"
)

// defaultJobTimeout bounds the overlap guard for jobs stored without a timeout.
const defaultJobTimeout = 30 * time.Minute

// SchedulerService defines the interface for the job scheduling service.
type SchedulerService interface {
	Start(ctx context.Context)
	ProcessJobs(ctx context.Context)
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(
	cfg *config.Config,
	scheduleRepo repository.TaskScheduleRepository,
	historyRepo repository.TaskExecutionHistoryRepository,
	taskQueue repository.TaskQueueRepository,
	log *logger.Logger,
) SchedulerService {
	return &schedulerService{
		cfg:          cfg,
		scheduleRepo: scheduleRepo,
		historyRepo:  historyRepo,
		taskQueue:    taskQueue,
		logger:       log,
		location:     utils.GetISTLocation(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type schedulerService struct {
	cfg          *config.Config
	scheduleRepo repository.TaskScheduleRepository
	historyRepo  repository.TaskExecutionHistoryRepository
	taskQueue    repository.TaskQueueRepository
	logger       *logger.Logger
	location     *time.Location
	now          func() time.Time
}

// Start begins the periodic job processing loop.
func (s *schedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Scheduler.PollingInterval)
	defer ticker.Stop()

	s.ProcessJobs(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler service stopping")
			return
		case <-ticker.C:
			s.ProcessJobs(ctx)
		}
	}
}

// ProcessJobs finds and enqueues jobs that are due.
func (s *schedulerService) ProcessJobs(ctx context.Context) {
	schedules, err := s.scheduleRepo.FindDue(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to find jobs to schedule", logger.ErrorField(err))
		return
	}

	for _, schedule := range schedules {
		if !utils.ShouldContinue(ctx, s.logger) {
			return
		}
		s.publishTask(ctx, schedule)
	}
}

func (s *schedulerService) publishTask(ctx context.Context, schedule entity.TaskSchedule) {
	now := s.now()
	if schedule.Job == nil {
		s.logger.Error("Schedule has no job", logger.Field("schedule_id", schedule.ID), logger.Field("job_id", schedule.JobID))
		return
	}

	running, err := s.historyRepo.HasRunningSince(ctx, schedule.JobID, now.Add(-jobTimeout(schedule.Job)))
	if err != nil {
		s.logger.Error("Failed to check running executions", logger.ErrorField(err), logger.Field("job_id", schedule.JobID))
		return
	}
	if running {
		s.logger.Warn("Job still running, skipping this run",
			logger.StringField("job", schedule.Job.Name),
			logger.Field("schedule_id", schedule.ID),
		)
		s.advance(ctx, &schedule, now, false)
		return
	}

	history := &entity.TaskExecutionHistory{
		JobID:      schedule.JobID,
		ScheduleID: schedule.ID,
		Status:     entity.StatusRunning,
		StartedAt:  now,
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		s.logger.Error("Failed to create task history", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	if err := s.taskQueue.Publish(ctx, history); err != nil {
		s.logger.Error("Failed to enqueue task", logger.ErrorField(err), logger.Field("history_id", history.ID))
		history.Status = entity.StatusFailed
		history.CompletedAt = sql.NullTime{Time: s.now(), Valid: true}
		history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if errInner := s.historyRepo.Update(ctx, history); errInner != nil {
			s.logger.Error("Failed to update task history", logger.ErrorField(errInner), logger.Field("history_id", history.ID))
		}
		return
	}

	s.logger.Info("Task published successfully",
		logger.Field("history_id", history.ID),
		logger.StringField("job", schedule.Job.Name),
	)
	s.advance(ctx, &schedule, now, true)
}

// advance moves the schedule to its next cron occurrence after now.
func (s *schedulerService) advance(ctx context.Context, schedule *entity.TaskSchedule, now time.Time, executed bool) {
	next, err := NextExecution(schedule.CronExpression, now, s.location)
	if err != nil {
		s.logger.Error("Failed to parse cron expression", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}

	if executed {
		schedule.LastExecution = sql.NullTime{Time: now, Valid: true}
	}
	schedule.NextExecution = sql.NullTime{Time: next, Valid: true}
	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		s.logger.Error("Failed to update next execution time", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
	}
}

// NextExecution returns the first occurrence of expr after from, evaluated in
// loc and returned in UTC.
func NextExecution(expr string, from time.Time, loc *time.Location) (time.Time, error) {
	schedule, err := config.CronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from.In(loc)).UTC(), nil
}

func jobTimeout(job *entity.Job) time.Duration {
	if job.Timeout <= 0 {
		return defaultJobTimeout
	}
	return time.Duration(job.Timeout) * time.Second
}
