package service

import (
	"context"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/utils"
)

// SentimentToPercent maps an average sentiment in [-1, 1] to 0..100.
func SentimentToPercent(average float64) float64 {
	return (average + 1) * 50
}

// AggregateObservations summarises observations. An empty slice yields the
// neutral aggregate. Label counts use the stored labels.
func AggregateObservations(observations []entity.SentimentObservation, windowDays int) dto.SentimentAggregate {
	agg := dto.SentimentAggregate{
		Score0To100: NeutralScore,
		PeriodDays:  windowDays,
	}
	if len(observations) == 0 {
		return agg
	}

	var sum float64
	for _, o := range observations {
		sum += o.Score
		switch o.Label {
		case entity.SentimentPositive:
			agg.PositiveCount++
		case entity.SentimentNegative:
			agg.NegativeCount++
		default:
			agg.NeutralCount++
		}
	}

	average := sum / float64(len(observations))
	agg.Count = len(observations)
	agg.AverageScore = utils.Round(average, 3)
	agg.Score0To100 = utils.Round(SentimentToPercent(average), 2)
	return agg
}

// SentimentAggregator recomputes the sentiment of a security over a trailing
// window on every call.
type SentimentAggregator struct {
	sentimentRepo repository.SentimentRepository
	now           func() time.Time
}

// NewSentimentAggregator creates a new SentimentAggregator.
func NewSentimentAggregator(sentimentRepo repository.SentimentRepository) *SentimentAggregator {
	return &SentimentAggregator{
		sentimentRepo: sentimentRepo,
		now:           time.Now,
	}
}

// Aggregate summarises the observations created in the last windowDays days.
func (a *SentimentAggregator) Aggregate(ctx context.Context, securityID uint, windowDays int) (dto.SentimentAggregate, error) {
	return a.AggregateAt(ctx, securityID, windowDays, a.now())
}

// AggregateAt summarises observations created in [asOf - windowDays, asOf].
func (a *SentimentAggregator) AggregateAt(ctx context.Context, securityID uint, windowDays int, asOf time.Time) (dto.SentimentAggregate, error) {
	from := asOf.AddDate(0, 0, -windowDays)
	observations, err := a.sentimentRepo.FindBySecurityBetween(ctx, securityID, from, asOf)
	if err != nil {
		return dto.SentimentAggregate{}, fmt.Errorf("failed to load sentiment for security %d: %w", securityID, err)
	}
	return AggregateObservations(observations, windowDays), nil
}
