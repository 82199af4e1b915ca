package dto

import (
	"time"

	"golang-stock-screener/internal/entity"
)

// RunState is the lifecycle state of one ingestion run.
type RunState string

const (
	RunStatePending    RunState = "PENDING"
	RunStateFetching   RunState = "FETCHING"
	RunStateProcessing RunState = "PROCESSING"
	RunStateSkipped    RunState = "SKIPPED"
	RunStateSucceeded  RunState = "SUCCEEDED"
	RunStateFailed     RunState = "FAILED"
)

// IngestionCounts are the record counters reported by a process step.
type IngestionCounts struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// IngestionResult is returned by every ingestion run.
type IngestionResult struct {
	RunID    string               `json:"run_id"`
	Type     entity.IngestionType `json:"type"`
	Source   string               `json:"source"`
	State    RunState             `json:"state"`
	DataHash string               `json:"data_hash"`
	Counts   IngestionCounts      `json:"counts"`
	Attempts int                  `json:"attempts"`
	Duration time.Duration        `json:"duration"`
	Error    string               `json:"error,omitempty"`
}
