package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// JobType identifies which strategy executes a job.
type JobType string

const (
	JobTypeIngestFundamentals JobType = "ingest_fundamentals"
	JobTypeIngestNews         JobType = "ingest_news"
	JobTypeAnalyzeSentiment   JobType = "analyze_sentiment"
	JobTypeComputeScores      JobType = "compute_scores"
)

// JobTypes lists every job type, in pipeline order.
var JobTypes = []JobType{
	JobTypeIngestFundamentals,
	JobTypeIngestNews,
	JobTypeAnalyzeSentiment,
	JobTypeComputeScores,
}

type JobStatus string

const (
	StatusRunning   JobStatus = "RUNNING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

// Job is a named unit of work executed by the execution service.
type Job struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`
	Type        JobType        `gorm:"type:varchar(64);not null" json:"type"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Timeout     int            `gorm:"not null;default:1800" json:"timeout"` // seconds
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// TaskSchedule binds a job to a cron expression.
type TaskSchedule struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	JobID          uint         `gorm:"not null;uniqueIndex" json:"job_id"`
	Job            *Job         `gorm:"foreignKey:JobID" json:"job,omitempty"`
	CronExpression string       `gorm:"not null" json:"cron_expression"`
	IsActive       bool         `gorm:"not null;default:true" json:"is_active"`
	NextExecution  sql.NullTime `json:"next_execution"`
	LastExecution  sql.NullTime `json:"last_execution"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TaskSchedule) TableName() string {
	return "task_schedules"
}

// TaskExecutionHistory tracks one execution of a job.
type TaskExecutionHistory struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	JobID        uint           `gorm:"not null;index" json:"job_id"`
	ScheduleID   uint           `json:"schedule_id"`
	Status       JobStatus      `gorm:"type:varchar(16);not null;index" json:"status"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt  sql.NullTime   `json:"completed_at"`
	Output       sql.NullString `json:"output"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (TaskExecutionHistory) TableName() string {
	return "task_execution_histories"
}
