package dto

import "time"

// MetricScore is the per-metric entry of a fundamental breakdown.
type MetricScore struct {
	Value         float64 `json:"value"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// FundamentalScore is the result of scoring one snapshot.
type FundamentalScore struct {
	TotalScore  float64                `json:"total_score"`
	Breakdown   map[string]MetricScore `json:"breakdown"`
	MetricsUsed int                    `json:"metrics_used"`
	TotalWeight float64                `json:"total_weight"`
}

// SentimentAggregate summarises a window of sentiment observations.
type SentimentAggregate struct {
	AverageScore  float64 `json:"average_score"`
	Score0To100   float64 `json:"score_0_100"`
	Count         int     `json:"count"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
	NeutralCount  int     `json:"neutral_count"`
	PeriodDays    int     `json:"period_days"`
}

// ScoreBreakdown is persisted as the composite score's JSON breakdown.
type ScoreBreakdown struct {
	Fundamental FundamentalBreakdown `json:"fundamental"`
	Sentiment   SentimentBreakdown   `json:"sentiment"`
	Composite   CompositeBreakdown   `json:"composite"`
}

type FundamentalBreakdown struct {
	Score         float64                `json:"score"`
	Weight        float64                `json:"weight"`
	WeightedScore float64                `json:"weighted_score"`
	Breakdown     map[string]MetricScore `json:"breakdown"`
}

type SentimentBreakdown struct {
	Score            float64 `json:"score"`
	Weight           float64 `json:"weight"`
	WeightedScore    float64 `json:"weighted_score"`
	AverageSentiment float64 `json:"average_sentiment"`
	ArticleCount     int     `json:"article_count"`
	PositiveCount    int     `json:"positive_count"`
	NegativeCount    int     `json:"negative_count"`
	NeutralCount     int     `json:"neutral_count"`
	PeriodDays       int     `json:"period_days"`
}

type CompositeBreakdown struct {
	Score   float64 `json:"score"`
	Formula string  `json:"formula"`
}

// ScoreResult is the composite score of one security before ranking.
type ScoreResult struct {
	SecurityID       uint           `json:"security_id"`
	Symbol           string         `json:"symbol"`
	FundamentalScore float64        `json:"fundamental_score"`
	SentimentScore   float64        `json:"sentiment_score"`
	CompositeScore   float64        `json:"composite_score"`
	Rank             int            `json:"rank,omitempty"`
	Breakdown        ScoreBreakdown `json:"breakdown"`
}

// ScoreAllResult summarises one ranking run.
type ScoreAllResult struct {
	ScoreDate     time.Time     `json:"score_date"`
	Scored        int           `json:"scored"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	Persisted     int           `json:"persisted"`
	WriteFailures int           `json:"write_failures"`
	Scores        []ScoreResult `json:"scores"`
}

// ScoreField selects which score a ranking query orders by.
type ScoreField string

const (
	ScoreFieldComposite   ScoreField = "composite_score"
	ScoreFieldFundamental ScoreField = "fundamental_score"
	ScoreFieldSentiment   ScoreField = "sentiment_score"
)

// Valid reports whether f is a sortable score column.
func (f ScoreField) Valid() bool {
	switch f {
	case ScoreFieldComposite, ScoreFieldFundamental, ScoreFieldSentiment:
		return true
	}
	return false
}

// ScreeningFilter narrows the latest ranking run.
type ScreeningFilter struct {
	Sectors             []string
	MinMarketCap        *float64
	MaxMarketCap        *float64
	MinCompositeScore   *float64
	MinFundamentalScore *float64
	MinSentimentScore   *float64
	SortBy              ScoreField
	Limit               int
	Offset              int
}

// RankedSecurity is one row returned by the ranking queries.
type RankedSecurity struct {
	SecurityID       uint      `json:"security_id"`
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Sector           string    `json:"sector"`
	FundamentalScore float64   `json:"fundamental_score"`
	SentimentScore   float64   `json:"sentiment_score"`
	CompositeScore   float64   `json:"composite_score"`
	Rank             int       `json:"rank"`
	ScoreDate        time.Time `json:"score_date"`
}
