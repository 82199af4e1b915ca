package strategy

import (
	"context"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
)

// NewsIngester is implemented by the news ingestion service.
type NewsIngester interface {
	IngestLatest(ctx context.Context) (*dto.IngestionResult, error)
}

// IngestNewsStrategy loads the latest news for the market queries and tracked symbols.
type IngestNewsStrategy struct {
	service NewsIngester
}

func NewIngestNewsStrategy(svc NewsIngester) *IngestNewsStrategy {
	return &IngestNewsStrategy{service: svc}
}

func (s *IngestNewsStrategy) GetType() entity.JobType {
	return entity.JobTypeIngestNews
}

func (s *IngestNewsStrategy) Execute(ctx context.Context, _ *entity.Job) (string, error) {
	result, err := s.service.IngestLatest(ctx)
	return output(result, err)
}
