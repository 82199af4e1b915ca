package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextExecution(t *testing.T) {
	tests := []struct {
		name string
		expr string
		from time.Time
		want time.Time
	}{
		{"weekday evening from monday evening", "0 18 * * 1-5", fixedNow, ist(2025, 3, 18, 18, 0)},
		{"weekday evening skips weekend", "0 18 * * 1-5", ist(2025, 3, 21, 19, 0), ist(2025, 3, 24, 18, 0)},
		{"every two hours", "0 */2 * * *", fixedNow, ist(2025, 3, 17, 20, 0)},
		{"half past every two hours", "30 */2 * * *", fixedNow, ist(2025, 3, 17, 18, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextExecution(tt.expr, tt.from, utils.GetISTLocation())
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := NextExecution("not a cron", fixedNow, utils.GetISTLocation())
	assert.Error(t, err)
}

func TestSchedulerService_ProcessJobs(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	job, due := createScheduledJob(t, db, "compute-scores", "0 18 * * 1-5", fixedNow.Add(-time.Minute))
	_, future := createScheduledJob(t, db, "ingest-news", "0 */2 * * *", fixedNow.Add(time.Hour))
	_, paused := createScheduledJob(t, db, "analyze-sentiment", "30 */2 * * *", fixedNow.Add(-time.Hour))
	require.NoError(t, db.Model(paused).Update("is_active", false).Error)

	queue := &fakeTaskQueue{}
	newTestScheduler(db, queue).ProcessJobs(ctx)

	require.Len(t, queue.published, 1)
	published := queue.published[0]
	assert.Equal(t, job.ID, published.JobID)
	assert.Equal(t, due.ID, published.ScheduleID)
	assert.Equal(t, entity.StatusRunning, published.Status)

	var history entity.TaskExecutionHistory
	require.NoError(t, db.First(&history, published.ID).Error)
	assert.Equal(t, entity.StatusRunning, history.Status)
	assert.True(t, fixedNow.Equal(history.StartedAt))

	updated := loadSchedule(t, db, due.ID)
	require.True(t, updated.NextExecution.Valid)
	assert.True(t, ist(2025, 3, 18, 18, 0).Equal(updated.NextExecution.Time))
	require.True(t, updated.LastExecution.Valid)
	assert.True(t, fixedNow.Equal(updated.LastExecution.Time))

	untouched := loadSchedule(t, db, future.ID)
	assert.False(t, untouched.LastExecution.Valid)
	assert.True(t, fixedNow.Add(time.Hour).Equal(untouched.NextExecution.Time))
}

func TestSchedulerService_OverlapGuard(t *testing.T) {
	tests := []struct {
		name        string
		startedAgo  time.Duration
		status      entity.JobStatus
		wantPublish bool
	}{
		{"running within timeout", 10 * time.Minute, entity.StatusRunning, false},
		{"running past timeout", 2 * time.Hour, entity.StatusRunning, true},
		{"completed recently", 5 * time.Minute, entity.StatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newDB(t)
			job, schedule := createScheduledJob(t, db, "compute-scores", "0 18 * * 1-5", fixedNow.Add(-time.Minute))
			require.NoError(t, db.Create(&entity.TaskExecutionHistory{
				JobID:      job.ID,
				ScheduleID: schedule.ID,
				Status:     tt.status,
				StartedAt:  fixedNow.Add(-tt.startedAgo),
			}).Error)

			queue := &fakeTaskQueue{}
			newTestScheduler(db, queue).ProcessJobs(context.Background())

			updated := loadSchedule(t, db, schedule.ID)
			assert.True(t, ist(2025, 3, 18, 18, 0).Equal(updated.NextExecution.Time))
			if tt.wantPublish {
				assert.Len(t, queue.published, 1)
				assert.True(t, updated.LastExecution.Valid)
				return
			}
			assert.Empty(t, queue.published)
			assert.False(t, updated.LastExecution.Valid)

			var count int64
			require.NoError(t, db.Model(&entity.TaskExecutionHistory{}).Count(&count).Error)
			assert.EqualValues(t, 1, count)
		})
	}
}

func TestSchedulerService_PublishFailure(t *testing.T) {
	db := newDB(t)
	_, schedule := createScheduledJob(t, db, "compute-scores", "0 18 * * 1-5", fixedNow.Add(-time.Minute))

	queue := &fakeTaskQueue{err: errors.New("redis unavailable")}
	newTestScheduler(db, queue).ProcessJobs(context.Background())

	var history entity.TaskExecutionHistory
	require.NoError(t, db.Where("schedule_id = ?", schedule.ID).First(&history).Error)
	assert.Equal(t, entity.StatusFailed, history.Status)
	assert.True(t, history.CompletedAt.Valid)
	assert.Equal(t, "redis unavailable", history.ErrorMessage.String)

	// left due so the next poll tries again
	updated := loadSchedule(t, db, schedule.ID)
	assert.True(t, fixedNow.Add(-time.Minute).Equal(updated.NextExecution.Time))
	assert.False(t, updated.LastExecution.Valid)
}
