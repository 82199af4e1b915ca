package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-stock-screener/internal/entity"
)

// JobExecutionStrategy defines the interface for different job execution strategies.
type JobExecutionStrategy interface {
	Execute(ctx context.Context, job *entity.Job) (string, error)
	GetType() entity.JobType
}

// JobPayload is the optional JSON payload of a job.
type JobPayload struct {
	// Symbols restricts fundamental ingestion to the listed symbols.
	Symbols []string `json:"symbols,omitempty"`
}

func decodePayload(job *entity.Job) (JobPayload, error) {
	var payload JobPayload
	if len(job.Payload) == 0 || string(job.Payload) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	return payload, nil
}

// output encodes a job result for the execution history. The result is
// encoded even when the job failed so partial progress is recorded.
func output[T any](result *T, err error) (string, error) {
	if result == nil {
		return "", err
	}
	encoded, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("failed to marshal job output: %w", marshalErr)
	}
	return string(encoded), err
}
