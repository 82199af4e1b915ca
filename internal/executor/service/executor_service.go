package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/executor/strategy"
	"golang-stock-screener/pkg/common"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/telegram"
	"golang-stock-screener/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ExecutorService manages the execution of tasks.
type ExecutorService interface {
	// ProcessTask dequeues and executes a single task.
	ProcessTask(ctx context.Context)
	// ProcessRetries reclaims one task left pending by a consumer that died.
	ProcessRetries(ctx context.Context)
	// RunJob executes the registered job of jobType once, outside the scheduler.
	RunJob(ctx context.Context, jobType entity.JobType, payload []byte) (*entity.TaskExecutionHistory, error)
}

// NewExecutorService creates a new ExecutorService.
func NewExecutorService(
	cfg *config.Config,
	redisClient *redis.Client,
	jobRepo repository.JobRepository,
	historyRepo repository.TaskExecutionHistoryRepository,
	log *logger.Logger,
	telegramBot telegram.Notifier,
	strategies []strategy.JobExecutionStrategy,
) ExecutorService {
	strategyMap := make(map[entity.JobType]strategy.JobExecutionStrategy)
	for _, s := range strategies {
		strategyMap[s.GetType()] = s
	}
	if telegramBot == nil {
		telegramBot = telegram.NewNoopNotifier()
	}

	return &executorService{
		cfg:                cfg,
		redisClient:        redisClient,
		jobRepo:            jobRepo,
		historyRepo:        historyRepo,
		logger:             log,
		telegramBot:        telegramBot,
		executorStrategies: strategyMap,
	}
}

type executorService struct {
	cfg                *config.Config
	redisClient        *redis.Client
	jobRepo            repository.JobRepository
	historyRepo        repository.TaskExecutionHistoryRepository
	logger             *logger.Logger
	telegramBot        telegram.Notifier
	executorStrategies map[entity.JobType]strategy.JobExecutionStrategy
}

func (s *executorService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSchedulerTaskExecution, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()

	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return
		}
		s.logger.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	s.handleMessage(ctx, streams[0].Messages[0])
}

func (s *executorService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamSchedulerTaskExecution,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Executor.RedisStreamTaskExecutionMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to claim task on retry", logger.ErrorField(err))
		return
	}
	if len(msgs) == 0 {
		s.logger.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamSchedulerTaskExecution))
		return
	}

	msg := msgs[0]
	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamSchedulerTaskExecution,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}
	if len(pendingInfo) == 0 {
		s.logger.Warn("pending msg not found, but exist on xautoclaim", logger.StringField("message_id", msg.ID))
		return
	}

	if pendingInfo[0].RetryCount < int64(s.cfg.Executor.RedisStreamTaskExecutionMaxRetry) {
		s.logger.Info("Retrying stale task", logger.StringField("message_id", msg.ID), logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
		s.handleMessage(ctx, msg)
		return
	}

	s.logger.Error("pending msg retry count exceeded",
		logger.StringField("message_id", msg.ID),
		logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
		logger.IntField("max_retry", s.cfg.Executor.RedisStreamTaskExecutionMaxRetry))

	if history, err := decodeHistory(msg); err == nil {
		history.Status = entity.StatusFailed
		history.ErrorMessage = sql.NullString{String: "retry count exceeded", Valid: true}
		history.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
		if err := s.historyRepo.Update(ctx, history); err != nil {
			s.logger.Error("Failed to update task history", logger.ErrorField(err), logger.Field("history_id", history.ID))
		}
		alert := telegram.FormatErrorAlertMessage(utils.TimeNowIST(), fmt.Sprintf("Task %d of job %d failed after %d deliveries", history.ID, history.JobID, pendingInfo[0].RetryCount))
		if err := s.telegramBot.SendMessage(alert); err != nil {
			s.logger.Error("Failed to send telegram message retry exceeded", logger.ErrorField(err))
		}
	}
	s.ack(ctx, msg.ID)
}

func (s *executorService) handleMessage(ctx context.Context, message redis.XMessage) {
	history, err := decodeHistory(message)
	if err != nil {
		s.logger.Error("Failed to decode task message", logger.ErrorField(err), logger.Field("message_id", message.ID))
		// Acknowledge the message to prevent reprocessing of a malformed message.
		s.ack(ctx, message.ID)
		return
	}

	s.logger.Info("Processing job", logger.Field("job_id", history.JobID), logger.Field("history_id", history.ID))

	job, err := s.jobRepo.FindByID(ctx, history.JobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("Job no longer exists, dropping task", logger.Field("job_id", history.JobID))
		s.ack(ctx, message.ID)
		return
	}
	if err != nil {
		// left pending so that ProcessRetries picks it up again
		s.logger.Error("Failed to find job", logger.ErrorField(err), logger.Field("job_id", history.JobID))
		return
	}

	s.execute(ctx, job, history)
	s.ack(ctx, message.ID)
}

func (s *executorService) RunJob(ctx context.Context, jobType entity.JobType, payload []byte) (*entity.TaskExecutionHistory, error) {
	job, err := s.jobRepo.FindByType(ctx, jobType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no job registered for type %s", jobType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job %s: %w", jobType, err)
	}
	if len(payload) > 0 {
		job.Payload = payload
	}

	history := &entity.TaskExecutionHistory{
		JobID:     job.ID,
		Status:    entity.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to create task history: %w", err)
	}

	s.execute(ctx, job, history)
	if history.Status == entity.StatusFailed {
		return history, errors.New(history.ErrorMessage.String)
	}
	return history, nil
}

// execute runs the job under its timeout and records the outcome.
func (s *executorService) execute(ctx context.Context, job *entity.Job, history *entity.TaskExecutionHistory) {
	timeout := time.Duration(job.Timeout) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.Executor.DefaultJobTimeout
	}
	executionCtx, cancelExec := context.WithTimeout(ctx, timeout)
	defer cancelExec()

	s.executeAndUpdate(executionCtx, job, history)
}

func (s *executorService) executeAndUpdate(ctx context.Context, job *entity.Job, history *entity.TaskExecutionHistory) {
	strategy, ok := s.executorStrategies[job.Type]
	if !ok {
		err := fmt.Errorf("no executor strategy found for task type: %s", job.Type)
		s.logger.Error("Job execution failed", logger.ErrorField(err), logger.Field("job_id", job.ID))
		history.Status = entity.StatusFailed
		history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	} else {
		output, err := strategy.Execute(ctx, job)
		if err != nil {
			s.logger.Error("Job execution failed", logger.ErrorField(err), logger.Field("job_id", job.ID), logger.IntField("history_id", int(history.ID)))
			history.Status = entity.StatusFailed
			history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		} else {
			s.logger.Info("Job executed successfully", logger.Field("job_id", job.ID), logger.IntField("history_id", int(history.ID)))
			history.Status = entity.StatusCompleted
		}
		history.Output = sql.NullString{String: output, Valid: output != ""}
	}

	history.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}

	// the execution context may already be past its deadline
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.historyRepo.Update(updateCtx, history); err != nil {
		s.logger.Error("Failed to update task history", logger.ErrorField(err), logger.Field("history_id", history.ID))
	}
	s.logger.Info("Job execution completed", logger.Field("job_id", job.ID), logger.IntField("history_id", int(history.ID)), logger.StringField("status", string(history.Status)))
}

func (s *executorService) ack(ctx context.Context, messageID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.redisClient.XAck(ctx, common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.logger.Error("Failed to acknowledge message", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, common.RedisStreamSchedulerTaskExecution, messageID).Err(); err != nil {
		s.logger.Error("Failed to delete message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}

// decodeHistory reads the task execution history from the 'payload' field.
func decodeHistory(message redis.XMessage) (*entity.TaskExecutionHistory, error) {
	taskData, ok := message.Values[common.RedisPayloadField].(string)
	if !ok {
		return nil, fmt.Errorf("field '%s' not found or not a string in stream message", common.RedisPayloadField)
	}
	var history entity.TaskExecutionHistory
	if err := json.Unmarshal([]byte(taskData), &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &history, nil
}
