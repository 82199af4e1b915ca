package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/scheduler/config"
	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/internal/testutil"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// monday 18:00 IST
var fixedNow = time.Date(2025, 3, 17, 12, 30, 0, 0, time.UTC)

type fakeTaskQueue struct {
	mu        sync.Mutex
	published []entity.TaskExecutionHistory
	err       error
}

func (f *fakeTaskQueue) Publish(_ context.Context, history *entity.TaskExecutionHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, *history)
	return nil
}

func newTestConfig(jobs ...config.JobDefinition) *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler = config.Scheduler{PollingInterval: time.Minute, Jobs: jobs}
	return cfg
}

func newTestScheduler(db *gorm.DB, queue repository.TaskQueueRepository) *schedulerService {
	svc := NewSchedulerService(
		newTestConfig(),
		repository.NewTaskScheduleRepository(db),
		repository.NewTaskExecutionHistoryRepository(db),
		queue,
		logger.NewNop(),
	).(*schedulerService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func newTestJobService(db *gorm.DB, cfg *config.Config) *jobService {
	svc := NewJobService(
		cfg,
		repository.NewJobRepository(db),
		repository.NewTaskScheduleRepository(db),
		logger.NewNop(),
	).(*jobService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func createScheduledJob(t *testing.T, db *gorm.DB, name, cron string, next time.Time) (*entity.Job, *entity.TaskSchedule) {
	t.Helper()
	job := &entity.Job{Name: name, Type: entity.JobTypeComputeScores, Timeout: 1800}
	require.NoError(t, db.Create(job).Error)
	schedule := &entity.TaskSchedule{JobID: job.ID, CronExpression: cron, IsActive: true}
	schedule.NextExecution.Time = next
	schedule.NextExecution.Valid = true
	require.NoError(t, db.Create(schedule).Error)
	return job, schedule
}

func loadSchedule(t *testing.T, db *gorm.DB, id uint) entity.TaskSchedule {
	t.Helper()
	var schedule entity.TaskSchedule
	require.NoError(t, db.First(&schedule, id).Error)
	return schedule
}

func ist(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, utils.GetISTLocation())
}

func newDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}
