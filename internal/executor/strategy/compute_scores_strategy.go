package strategy

import (
	"context"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
)

// CompositeScorer is the part of the composite engine the strategy needs.
type CompositeScorer interface {
	ScoreAll(ctx context.Context) (*dto.ScoreAllResult, error)
}

// ComputeScoresStrategy ranks every active security.
type ComputeScoresStrategy struct {
	scorer CompositeScorer
}

func NewComputeScoresStrategy(scorer CompositeScorer) *ComputeScoresStrategy {
	return &ComputeScoresStrategy{scorer: scorer}
}

func (s *ComputeScoresStrategy) GetType() entity.JobType {
	return entity.JobTypeComputeScores
}

// computeScoresOutput leaves out the per-security breakdowns, which are
// already persisted with each composite score.
type computeScoresOutput struct {
	ScoreDate     time.Time `json:"score_date"`
	Scored        int       `json:"scored"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	Persisted     int       `json:"persisted"`
	WriteFailures int       `json:"write_failures"`
	Top           []string  `json:"top,omitempty"`
}

func (s *ComputeScoresStrategy) Execute(ctx context.Context, _ *entity.Job) (string, error) {
	result, err := s.scorer.ScoreAll(ctx)
	if err != nil {
		return "", err
	}

	out := computeScoresOutput{
		ScoreDate:     result.ScoreDate,
		Scored:        result.Scored,
		Skipped:       result.Skipped,
		Errors:        result.Errors,
		Persisted:     result.Persisted,
		WriteFailures: result.WriteFailures,
	}
	for i := 0; i < len(result.Scores) && i < 5; i++ {
		out.Top = append(out.Top, result.Scores[i].Symbol)
	}
	return output(&out, nil)
}
