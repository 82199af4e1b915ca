package dto

import (
	"time"
)

// JobSummary describes a scheduled job and its latest execution.
type JobSummary struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	CronExpression string     `json:"cron_expression"`
	IsActive       bool       `json:"is_active"`
	Timeout        int        `json:"timeout"` // in seconds
	NextExecution  *time.Time `json:"next_execution,omitempty"`
	LastExecution  *time.Time `json:"last_execution,omitempty"`
}
