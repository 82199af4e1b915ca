package strategy

import (
	"context"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
)

// SentimentAnalyzer is implemented by the sentiment analysis service.
type SentimentAnalyzer interface {
	AnalyzePending(ctx context.Context) (*dto.SentimentAnalysisResult, error)
}

// AnalyzeSentimentStrategy classifies news items that have no sentiment yet.
type AnalyzeSentimentStrategy struct {
	service SentimentAnalyzer
}

func NewAnalyzeSentimentStrategy(svc SentimentAnalyzer) *AnalyzeSentimentStrategy {
	return &AnalyzeSentimentStrategy{service: svc}
}

func (s *AnalyzeSentimentStrategy) GetType() entity.JobType {
	return entity.JobTypeAnalyzeSentiment
}

func (s *AnalyzeSentimentStrategy) Execute(ctx context.Context, _ *entity.Job) (string, error) {
	result, err := s.service.AnalyzePending(ctx)
	return output(result, err)
}
