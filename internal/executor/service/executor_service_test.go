package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/executor/strategy"
	"golang-stock-screener/pkg/logger"
)

type stubStrategy struct {
	jobType entity.JobType
	output  string
	err     error
	payload string
	hasDL   bool
}

func (s *stubStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	s.payload = string(job.Payload)
	_, s.hasDL = ctx.Deadline()
	return s.output, s.err
}

func (s *stubStrategy) GetType() entity.JobType { return s.jobType }

func TestExecutorService_RunJob(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&entity.Job{Name: "compute-scores", Type: entity.JobTypeComputeScores, Timeout: 60}).Error)
	require.NoError(t, db.Create(&entity.Job{Name: "ingest-news", Type: entity.JobTypeIngestNews, Timeout: 60}).Error)
	require.NoError(t, db.Create(&entity.Job{
		Name: "ingest-fundamentals", Type: entity.JobTypeIngestFundamentals, Timeout: 60,
		Payload: datatypes.JSON(`{}`),
	}).Error)

	ok := &stubStrategy{jobType: entity.JobTypeComputeScores, output: `{"scored":3}`}
	failing := &stubStrategy{jobType: entity.JobTypeIngestNews, output: `{"state":"FAILED"}`, err: errors.New("all queries failed")}
	payloadAware := &stubStrategy{jobType: entity.JobTypeIngestFundamentals}

	cfg := newTestConfig()
	cfg.Executor.DefaultJobTimeout = time.Minute
	svc := NewExecutorService(
		cfg,
		nil,
		repository.NewJobRepository(db),
		repository.NewTaskExecutionHistoryRepository(db),
		logger.NewNop(),
		nil,
		[]strategy.JobExecutionStrategy{ok, failing, payloadAware},
	)

	t.Run("completed", func(t *testing.T) {
		history, err := svc.RunJob(ctx, entity.JobTypeComputeScores, nil)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, history.Status)
		assert.True(t, ok.hasDL, "jobs run under their timeout")

		var stored entity.TaskExecutionHistory
		require.NoError(t, db.First(&stored, history.ID).Error)
		assert.Equal(t, entity.StatusCompleted, stored.Status)
		assert.Equal(t, `{"scored":3}`, stored.Output.String)
		assert.True(t, stored.CompletedAt.Valid)
	})

	t.Run("failed keeps output", func(t *testing.T) {
		history, err := svc.RunJob(ctx, entity.JobTypeIngestNews, nil)
		require.EqualError(t, err, "all queries failed")

		var stored entity.TaskExecutionHistory
		require.NoError(t, db.First(&stored, history.ID).Error)
		assert.Equal(t, entity.StatusFailed, stored.Status)
		assert.Equal(t, "all queries failed", stored.ErrorMessage.String)
		assert.Equal(t, `{"state":"FAILED"}`, stored.Output.String)
	})

	t.Run("payload override", func(t *testing.T) {
		_, err := svc.RunJob(ctx, entity.JobTypeIngestFundamentals, []byte(`{"symbols":["TCS"]}`))
		require.NoError(t, err)
		assert.Equal(t, `{"symbols":["TCS"]}`, payloadAware.payload)
	})

	t.Run("unregistered job", func(t *testing.T) {
		_, err := svc.RunJob(ctx, entity.JobTypeAnalyzeSentiment, nil)
		assert.ErrorContains(t, err, "no job registered")
	})
}

func TestDecodeHistory(t *testing.T) {
	history, err := decodeHistory(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"payload": `{"id":12,"job_id":3,"status":"RUNNING"}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, uint(12), history.ID)
	assert.Equal(t, uint(3), history.JobID)

	_, err = decodeHistory(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"other": "x"}})
	assert.Error(t, err)

	_, err = decodeHistory(redis.XMessage{ID: "3-0", Values: map[string]interface{}{"payload": "{"}})
	assert.Error(t, err)
}
