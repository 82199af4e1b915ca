package service

import (
	"context"
	"fmt"

	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/pkg/logger"
)

// ScheduleService pauses and resumes job schedules.
type ScheduleService interface {
	SetActive(ctx context.Context, jobName string, active bool) error
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(jobRepo repository.JobRepository, scheduleRepo repository.TaskScheduleRepository, log *logger.Logger) ScheduleService {
	return &scheduleService{
		jobRepo:      jobRepo,
		scheduleRepo: scheduleRepo,
		logger:       log,
	}
}

type scheduleService struct {
	jobRepo      repository.JobRepository
	scheduleRepo repository.TaskScheduleRepository
	logger       *logger.Logger
}

// SetActive pauses (active=false) or resumes the schedule of the named job.
func (s *scheduleService) SetActive(ctx context.Context, jobName string, active bool) error {
	job, err := s.jobRepo.FindByName(ctx, jobName)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	if err := s.scheduleRepo.SetActive(ctx, job.ID, active); err != nil {
		s.logger.Error("Failed to update schedule", logger.ErrorField(err), logger.StringField("job", jobName))
		return err
	}

	s.logger.Info("Schedule updated successfully", logger.StringField("job", jobName), logger.Field("active", active))
	return nil
}
