package strategy

import (
	"context"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/logger"
)

// FundamentalIngester is implemented by the fundamental ingestion service.
type FundamentalIngester interface {
	IngestAll(ctx context.Context) (*dto.IngestionResult, error)
	IngestSymbols(ctx context.Context, symbols []string) (*dto.IngestionResult, error)
}

// IngestFundamentalsStrategy loads fundamental snapshots for the symbol universe.
type IngestFundamentalsStrategy struct {
	logger  *logger.Logger
	service FundamentalIngester
}

// NewIngestFundamentalsStrategy creates a new IngestFundamentalsStrategy.
func NewIngestFundamentalsStrategy(log *logger.Logger, svc FundamentalIngester) *IngestFundamentalsStrategy {
	return &IngestFundamentalsStrategy{logger: log, service: svc}
}

// GetType returns the job type this strategy handles.
func (s *IngestFundamentalsStrategy) GetType() entity.JobType {
	return entity.JobTypeIngestFundamentals
}

// Execute ingests the symbols of the payload, or the whole universe when the
// payload lists none.
func (s *IngestFundamentalsStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	payload, err := decodePayload(job)
	if err != nil {
		return "", err
	}

	var result *dto.IngestionResult
	if len(payload.Symbols) > 0 {
		s.logger.InfoContext(ctx, "Ingesting fundamentals for symbols", logger.Field("symbols", payload.Symbols))
		result, err = s.service.IngestSymbols(ctx, payload.Symbols)
	} else {
		result, err = s.service.IngestAll(ctx)
	}
	return output(result, err)
}
