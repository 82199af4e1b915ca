package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-stock-screener/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Validate(t *testing.T) {
	valid := JobDefinition{Name: "compute-scores", Type: entity.JobTypeComputeScores, Cron: "0 18 * * 1-5"}

	tests := []struct {
		name    string
		modify  func(s *Scheduler)
		wantErr bool
	}{
		{"defaults", func(s *Scheduler) { s.Jobs = DefaultJobs() }, false},
		{"single job", func(s *Scheduler) {}, false},
		{"zero polling interval", func(s *Scheduler) { s.PollingInterval = 0 }, true},
		{"missing name", func(s *Scheduler) { s.Jobs[0].Name = "" }, true},
		{"duplicate name", func(s *Scheduler) { s.Jobs = append(s.Jobs, valid) }, true},
		{"unknown type", func(s *Scheduler) { s.Jobs[0].Type = "http_request" }, true},
		{"invalid cron", func(s *Scheduler) { s.Jobs[0].Cron = "every day" }, true},
		{"negative timeout", func(s *Scheduler) { s.Jobs[0].Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Scheduler{PollingInterval: time.Minute, Jobs: []JobDefinition{valid}}
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scheduler:
  polling_interval: 10s
  jobs:
    - name: compute-scores
      type: compute_scores
      cron: "0 19 * * 1-5"
      timeout: 15m
      symbols: [TCS, INFY]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.PollingInterval)
	require.Len(t, cfg.Scheduler.Jobs, 1)
	assert.Equal(t, entity.JobTypeComputeScores, cfg.Scheduler.Jobs[0].Type)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Jobs[0].Timeout)
	assert.Equal(t, []string{"TCS", "INFY"}, cfg.Scheduler.Jobs[0].Symbols)
	assert.Equal(t, "scheduling-service", cfg.App.Name)

	cfg, err = Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Scheduler.Jobs, 4)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollingInterval)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scheduler:\n  jobs:\n    - name: x\n      type: compute_scores\n      cron: nope\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidJob)
}
