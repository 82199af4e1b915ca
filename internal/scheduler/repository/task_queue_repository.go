package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/pkg/common"

	"github.com/redis/go-redis/v9"
)

// TaskQueueRepository hands execution histories over to the execution service.
type TaskQueueRepository interface {
	Publish(ctx context.Context, history *entity.TaskExecutionHistory) error
}

// NewRedisTaskQueueRepository publishes onto the task execution stream, trimming it to maxLen.
func NewRedisTaskQueueRepository(client *redis.Client, maxLen int64) TaskQueueRepository {
	return &redisTaskQueueRepository{client: client, maxLen: maxLen}
}

type redisTaskQueueRepository struct {
	client *redis.Client
	maxLen int64
}

// Publish adds the history as JSON to the stream.
func (r *redisTaskQueueRepository) Publish(ctx context.Context, history *entity.TaskExecutionHistory) error {
	taskPayload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSchedulerTaskExecution,
		Values: map[string]interface{}{common.RedisPayloadField: taskPayload},
		MaxLen: r.maxLen,
		Approx: true,
	}).Err()
}
