package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringValidateWeights(t *testing.T) {
	tests := []struct {
		name        string
		fundamental float64
		sentiment   float64
		wantErr     bool
	}{
		{"default split", 0.6, 0.4, false},
		{"within tolerance", 0.6, 0.405, false},
		{"sum above tolerance", 0.6, 0.45, true},
		{"sum below tolerance", 0.5, 0.4, true},
		{"negative weight", 1.2, -0.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Scoring{FundamentalWeight: tt.fundamental, SentimentWeight: tt.sentiment, Metrics: DefaultMetricThresholds()}
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScoringValidateThresholds(t *testing.T) {
	tests := []struct {
		name   string
		metric MetricThreshold
	}{
		{"inverse with excellent above good", MetricThreshold{Name: "x", Excellent: 2, Good: 1, Weight: 0.1, Inverse: true}},
		{"direct with excellent below good", MetricThreshold{Name: "x", Excellent: 1, Good: 2, Weight: 0.1}},
		{"direct with zero good", MetricThreshold{Name: "x", Excellent: 1, Good: 0, Weight: 0.1}},
		{"zero weight", MetricThreshold{Name: "x", Excellent: 2, Good: 1, Weight: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Scoring{FundamentalWeight: 0.6, SentimentWeight: 0.4, Metrics: []MetricThreshold{tt.metric}}
			assert.ErrorIs(t, s.Validate(), ErrInvalidThreshold)
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Scoring.FundamentalWeight)
	assert.Equal(t, 0.4, cfg.Scoring.SentimentWeight)
	assert.Len(t, cfg.Scoring.Metrics, 7)
	assert.Equal(t, 3, cfg.Ingestion.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Ingestion.Retry.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Ingestion.Retry.MaxDelay)
	assert.Equal(t, 30, cfg.Sentiment.WindowDays)
	assert.Contains(t, cfg.Ingestion.TrackedSymbols, "RELIANCE")
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("scoring:\n  fundamental_weight: 0.6\n  sentiment_weight: 0.45\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}
