package service

import (
	"math"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/utils"
)

// NeutralScore is returned for metrics or securities without data.
const NeutralScore = 50.0

// ScoreMetric normalises one metric value to 0..100. Values at the excellent
// threshold score 100, values at the good threshold score 70 and a missing
// value scores 50.
func ScoreMetric(value *float64, excellent, good float64, inverse bool) float64 {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return NeutralScore
	}
	v := *value

	if inverse {
		switch {
		case v <= excellent:
			return 100
		case v <= good:
			return 70 + 30*(1-(v-excellent)/(good-excellent))
		default:
			return math.Max(0, 70-(v-good)*20)
		}
	}

	switch {
	case v >= excellent:
		return 100
	case v >= good:
		return 70 + 30*(v-good)/(excellent-good)
	case good <= 0:
		return 0
	default:
		return math.Max(0, 70*v/good)
	}
}

// FundamentalScorer scores the latest fundamental snapshot of a security.
type FundamentalScorer struct {
	metrics []config.MetricThreshold
}

// NewFundamentalScorer creates a scorer for the given metric thresholds.
func NewFundamentalScorer(metrics []config.MetricThreshold) *FundamentalScorer {
	return &FundamentalScorer{metrics: metrics}
}

// Score returns the weighted average of the metric scores of snapshot. Only
// metrics with data take part, so missing metrics do not pull the total down.
func (s *FundamentalScorer) Score(snapshot *entity.FundamentalSnapshot) dto.FundamentalScore {
	result := dto.FundamentalScore{
		TotalScore: NeutralScore,
		Breakdown:  map[string]dto.MetricScore{},
	}
	if snapshot == nil {
		return result
	}

	var weightedSum, totalWeight float64
	for _, m := range s.metrics {
		value := snapshot.Metric(m.Name)
		if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
			continue
		}

		score := ScoreMetric(value, m.Excellent, m.Good, m.Inverse)
		weightedSum += score * m.Weight
		totalWeight += m.Weight

		result.Breakdown[m.Name] = dto.MetricScore{
			Value:         *value,
			Score:         utils.Round(score, 2),
			Weight:        m.Weight,
			WeightedScore: utils.Round(score*m.Weight, 2),
		}
	}

	result.MetricsUsed = len(result.Breakdown)
	result.TotalWeight = utils.Round(totalWeight, 4)
	if totalWeight > 0 {
		result.TotalScore = utils.Round(weightedSum/totalWeight, 2)
	}
	return result
}
