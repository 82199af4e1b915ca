package service

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/scheduler/dto"
	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/pkg/logger"
)

// ErrJobNotFound is returned when a job name is not registered.
var ErrJobNotFound = errors.New("job not found")

// ExecutionHistoryService defines the interface for reading execution history.
type ExecutionHistoryService interface {
	// ListRecent returns the latest executions, newest first. An empty jobName lists every job.
	ListRecent(ctx context.Context, jobName string, limit int) ([]dto.ExecutionHistoryResponse, error)
}

// NewExecutionHistoryService creates a new execution history service.
func NewExecutionHistoryService(jobRepo repository.JobRepository, historyRepo repository.TaskExecutionHistoryRepository, log *logger.Logger) ExecutionHistoryService {
	return &executionHistoryService{
		jobRepo:     jobRepo,
		historyRepo: historyRepo,
		logger:      log,
	}
}

type executionHistoryService struct {
	jobRepo     repository.JobRepository
	historyRepo repository.TaskExecutionHistoryRepository
	logger      *logger.Logger
}

func (s *executionHistoryService) ListRecent(ctx context.Context, jobName string, limit int) ([]dto.ExecutionHistoryResponse, error) {
	var jobID uint
	if jobName != "" {
		job, err := s.jobRepo.FindByName(ctx, jobName)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
		}
		jobID = job.ID
	}

	histories, err := s.historyRepo.FindRecent(ctx, jobID, limit)
	if err != nil {
		s.logger.Error("Failed to get execution histories", logger.ErrorField(err), logger.Field("job_id", jobID))
		return nil, err
	}

	responses := make([]dto.ExecutionHistoryResponse, 0, len(histories))
	for i := range histories {
		responses = append(responses, mapToExecutionHistoryResponse(&histories[i]))
	}
	return responses, nil
}

func mapToExecutionHistoryResponse(history *entity.TaskExecutionHistory) dto.ExecutionHistoryResponse {
	var duration int64
	if history.CompletedAt.Valid {
		duration = history.CompletedAt.Time.Sub(history.StartedAt).Milliseconds()
	}

	return dto.ExecutionHistoryResponse{
		ID:           history.ID,
		JobID:        history.JobID,
		ScheduleID:   history.ScheduleID,
		Status:       string(history.Status),
		ExecutedAt:   history.StartedAt,
		Duration:     duration,
		Output:       history.Output.String,
		ErrorMessage: history.ErrorMessage.String,
	}
}
