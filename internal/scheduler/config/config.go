package config

import (
	"errors"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/pkg/config"

	"github.com/robfig/cron/v3"
)

// ErrInvalidJob is returned for a job definition the scheduler cannot run.
var ErrInvalidJob = errors.New("invalid job definition")

// CronParser parses the standard five-field cron expressions used by schedules.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// JobDefinition declares one scheduled job and its cadence.
type JobDefinition struct {
	Name        string         `mapstructure:"name"`
	Type        entity.JobType `mapstructure:"type"`
	Description string         `mapstructure:"description"`
	Cron        string         `mapstructure:"cron"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Symbols     []string       `mapstructure:"symbols"`
	Disabled    bool           `mapstructure:"disabled"`
}

// Scheduler holds scheduler-specific configuration.
type Scheduler struct {
	PollingInterval time.Duration   `mapstructure:"polling_interval"`
	Jobs            []JobDefinition `mapstructure:"jobs"`
}

// Config holds the full configuration for the scheduler service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
}

var defaults = map[string]interface{}{
	"app.name":                   "scheduling-service",
	"scheduler.polling_interval": "30s",
}

// DefaultJobs returns the four pipeline jobs with their default cadences.
func DefaultJobs() []JobDefinition {
	return []JobDefinition{
		{
			Name:        "ingest-fundamentals",
			Type:        entity.JobTypeIngestFundamentals,
			Description: "Fetch fundamental metrics for the tracked universe after market close",
			Cron:        "0 17 * * 1-5",
			Timeout:     time.Hour,
		},
		{
			Name:        "ingest-news",
			Type:        entity.JobTypeIngestNews,
			Description: "Fetch market and symbol news",
			Cron:        "0 */2 * * *",
			Timeout:     30 * time.Minute,
		},
		{
			Name:        "analyze-sentiment",
			Type:        entity.JobTypeAnalyzeSentiment,
			Description: "Classify pending news per security",
			Cron:        "30 */2 * * *",
			Timeout:     30 * time.Minute,
		},
		{
			Name:        "compute-scores",
			Type:        entity.JobTypeComputeScores,
			Description: "Recompute composite scores and rankings",
			Cron:        "0 18 * * 1-5",
			Timeout:     30 * time.Minute,
		},
	}
}

// Validate checks that every job has a unique name, a known type and a
// parseable cron expression.
func (s Scheduler) Validate() error {
	if s.PollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %s", s.PollingInterval)
	}

	names := make(map[string]bool, len(s.Jobs))
	for _, job := range s.Jobs {
		if job.Name == "" {
			return fmt.Errorf("%w: job name is required", ErrInvalidJob)
		}
		if names[job.Name] {
			return fmt.Errorf("%w: duplicate job %q", ErrInvalidJob, job.Name)
		}
		names[job.Name] = true

		if !isKnownType(job.Type) {
			return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidJob, job.Name, job.Type)
		}
		if _, err := CronParser.Parse(job.Cron); err != nil {
			return fmt.Errorf("%w: %s has invalid cron %q: %v", ErrInvalidJob, job.Name, job.Cron, err)
		}
		if job.Timeout < 0 {
			return fmt.Errorf("%w: %s timeout must not be negative", ErrInvalidJob, job.Name)
		}
	}
	return nil
}

func isKnownType(jobType entity.JobType) bool {
	for _, t := range entity.JobTypes {
		if t == jobType {
			return true
		}
	}
	return false
}

// Load loads the scheduler configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, defaults); err != nil {
		return nil, err
	}
	if len(cfg.Scheduler.Jobs) == 0 {
		cfg.Scheduler.Jobs = DefaultJobs()
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler configuration: %w", err)
	}
	return &cfg, nil
}
