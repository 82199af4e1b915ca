package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/telegram"
	"golang-stock-screener/pkg/utils"

	"github.com/patrickmn/go-cache"
	"gorm.io/datatypes"
)

const latestRankingCacheKey = "ranking:latest"

// ErrSecurityNotFound is returned when scoring a security that does not exist.
var ErrSecurityNotFound = errors.New("security not found")

// CompositeEngine blends fundamental and sentiment scores into a ranking.
type CompositeEngine struct {
	securityRepo repository.SecurityRepository
	snapshotRepo repository.FundamentalSnapshotRepository
	scoreRepo    repository.CompositeScoreRepository
	fundamental  *FundamentalScorer
	sentiment    *SentimentAggregator
	scoring      config.Scoring
	windowDays   int
	topN         int
	cache        *cache.Cache
	notifier     telegram.Notifier
	logger       *logger.Logger
	now          func() time.Time
}

// NewCompositeEngine creates a new CompositeEngine. cfg.Scoring must already
// be validated.
func NewCompositeEngine(
	cfg *config.Config,
	log *logger.Logger,
	securityRepo repository.SecurityRepository,
	snapshotRepo repository.FundamentalSnapshotRepository,
	scoreRepo repository.CompositeScoreRepository,
	sentiment *SentimentAggregator,
	notifier telegram.Notifier,
	rankingCache *cache.Cache,
) *CompositeEngine {
	if notifier == nil {
		notifier = telegram.NewNoopNotifier()
	}
	return &CompositeEngine{
		securityRepo: securityRepo,
		snapshotRepo: snapshotRepo,
		scoreRepo:    scoreRepo,
		fundamental:  NewFundamentalScorer(cfg.Scoring.Metrics),
		sentiment:    sentiment,
		scoring:      cfg.Scoring,
		windowDays:   cfg.Sentiment.WindowDays,
		topN:         cfg.Notification.TopN,
		cache:        rankingCache,
		notifier:     notifier,
		logger:       log,
		now:          time.Now,
	}
}

// Formula describes how the composite score is computed.
func (e *CompositeEngine) Formula() string {
	return fmt.Sprintf("%.2f * fundamental + %.2f * sentiment", e.scoring.FundamentalWeight, e.scoring.SentimentWeight)
}

// ScoreOne scores a single security as of asOf. It returns nil without an
// error when the security has no fundamental snapshot.
func (e *CompositeEngine) ScoreOne(ctx context.Context, securityID uint, asOf time.Time) (*dto.ScoreResult, error) {
	security, err := e.securityRepo.FindByID(ctx, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load security %d: %w", securityID, err)
	}
	if security == nil {
		return nil, fmt.Errorf("%w: %d", ErrSecurityNotFound, securityID)
	}
	return e.scoreSecurity(ctx, security, asOf)
}

func (e *CompositeEngine) scoreSecurity(ctx context.Context, security *entity.Security, asOf time.Time) (*dto.ScoreResult, error) {
	snapshot, err := e.snapshotRepo.FindLatest(ctx, security.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", security.Symbol, err)
	}
	if snapshot == nil {
		return nil, nil
	}

	fundamental := e.fundamental.Score(snapshot)
	sentiment, err := e.sentiment.AggregateAt(ctx, security.ID, e.windowDays, asOf)
	if err != nil {
		return nil, err
	}

	return e.compose(security, fundamental, sentiment), nil
}

func (e *CompositeEngine) compose(security *entity.Security, fundamental dto.FundamentalScore, sentiment dto.SentimentAggregate) *dto.ScoreResult {
	fw, sw := e.scoring.FundamentalWeight, e.scoring.SentimentWeight
	composite := utils.Round(fw*fundamental.TotalScore+sw*sentiment.Score0To100, 2)

	return &dto.ScoreResult{
		SecurityID:       security.ID,
		Symbol:           security.Symbol,
		FundamentalScore: fundamental.TotalScore,
		SentimentScore:   sentiment.Score0To100,
		CompositeScore:   composite,
		Breakdown: dto.ScoreBreakdown{
			Fundamental: dto.FundamentalBreakdown{
				Score:         fundamental.TotalScore,
				Weight:        fw,
				WeightedScore: utils.Round(fw*fundamental.TotalScore, 2),
				Breakdown:     fundamental.Breakdown,
			},
			Sentiment: dto.SentimentBreakdown{
				Score:            sentiment.Score0To100,
				Weight:           sw,
				WeightedScore:    utils.Round(sw*sentiment.Score0To100, 2),
				AverageSentiment: sentiment.AverageScore,
				ArticleCount:     sentiment.Count,
				PositiveCount:    sentiment.PositiveCount,
				NegativeCount:    sentiment.NegativeCount,
				NeutralCount:     sentiment.NeutralCount,
				PeriodDays:       sentiment.PeriodDays,
			},
			Composite: dto.CompositeBreakdown{
				Score:   composite,
				Formula: e.Formula(),
			},
		},
	}
}

// ScoreAll scores every active security as of now.
func (e *CompositeEngine) ScoreAll(ctx context.Context) (*dto.ScoreAllResult, error) {
	return e.ScoreAllAt(ctx, e.now())
}

// ScoreAllAt scores every active security, ranks the results and persists
// them under one shared score date in a single transaction. A failing
// security is counted and skipped; ranks are assigned only after every score
// is known.
func (e *CompositeEngine) ScoreAllAt(ctx context.Context, asOf time.Time) (*dto.ScoreAllResult, error) {
	securities, err := e.securityRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active securities: %w", err)
	}

	result := &dto.ScoreAllResult{
		ScoreDate: asOf.Truncate(time.Second),
		Scores:    make([]dto.ScoreResult, 0, len(securities)),
	}

	for i := range securities {
		if !utils.ShouldContinue(ctx, e.logger) {
			return nil, ctx.Err()
		}
		security := &securities[i]

		score, err := e.scoreSecurity(ctx, security, asOf)
		if err != nil {
			result.Errors++
			e.logger.ErrorContext(ctx, "Failed to score security",
				logger.StringField("symbol", security.Symbol),
				logger.ErrorField(err))
			continue
		}
		if score == nil {
			result.Skipped++
			e.logger.DebugContext(ctx, "No fundamental snapshot, skipping", logger.StringField("symbol", security.Symbol))
			continue
		}
		result.Scores = append(result.Scores, *score)
	}

	sort.SliceStable(result.Scores, func(i, j int) bool {
		return result.Scores[i].CompositeScore > result.Scores[j].CompositeScore
	})
	for i := range result.Scores {
		result.Scores[i].Rank = i + 1
	}
	result.Scored = len(result.Scores)

	if err := e.persist(ctx, result); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Scoring run completed",
		logger.Field("score_date", result.ScoreDate),
		logger.IntField("scored", result.Scored),
		logger.IntField("skipped", result.Skipped),
		logger.IntField("errors", result.Errors),
		logger.IntField("write_failures", result.WriteFailures))

	e.publish(ctx, result)
	return result, nil
}

// persist stores the ranking run as one batch. A record that cannot be
// encoded or written is logged and counted; the rest of the run is kept.
func (e *CompositeEngine) persist(ctx context.Context, result *dto.ScoreAllResult) error {
	rows := make([]*entity.CompositeScore, 0, len(result.Scores))
	queued := make([]dto.ScoreResult, 0, len(result.Scores))
	for _, score := range result.Scores {
		breakdown, err := json.Marshal(score.Breakdown)
		if err != nil {
			e.writeFailed(ctx, result, score, fmt.Errorf("failed to encode breakdown: %w", err))
			continue
		}
		rows = append(rows, &entity.CompositeScore{
			SecurityID:       score.SecurityID,
			FundamentalScore: score.FundamentalScore,
			SentimentScore:   score.SentimentScore,
			CompositeScore:   score.CompositeScore,
			Rank:             score.Rank,
			Breakdown:        datatypes.JSON(breakdown),
			ScoreDate:        result.ScoreDate,
		})
		queued = append(queued, score)
	}
	if len(rows) == 0 {
		return nil
	}

	failures, err := e.scoreRepo.CreateBatch(ctx, rows)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist ranking run",
			logger.Field("score_date", result.ScoreDate),
			logger.IntField("records", len(rows)),
			logger.ErrorField(err))
		return err
	}
	for i, score := range queued {
		if writeErr, failed := failures[i]; failed {
			e.writeFailed(ctx, result, score, writeErr)
			continue
		}
		result.Persisted++
	}
	return nil
}

func (e *CompositeEngine) writeFailed(ctx context.Context, result *dto.ScoreAllResult, score dto.ScoreResult, err error) {
	result.WriteFailures++
	e.logger.ErrorContext(ctx, "Failed to persist composite score",
		logger.StringField("symbol", score.Symbol),
		logger.IntField("rank", score.Rank),
		logger.ErrorField(err))
}

// publish caches the head of the ranking and sends it as a Telegram digest.
func (e *CompositeEngine) publish(ctx context.Context, result *dto.ScoreAllResult) {
	if e.topN <= 0 || result.Scored == 0 {
		return
	}
	top := result.Scores
	if len(top) > e.topN {
		top = top[:e.topN]
	}

	if e.cache != nil {
		e.cache.SetDefault(latestRankingCacheKey, cachedRanking{ScoreDate: result.ScoreDate, Scores: top})
	}

	for _, msg := range telegram.FormatRankingDigest(result.ScoreDate, top) {
		if err := e.notifier.SendMessage(msg); err != nil {
			e.logger.WarnContext(ctx, "Failed to send ranking digest", logger.ErrorField(err))
			return
		}
	}
}

type cachedRanking struct {
	ScoreDate time.Time
	Scores    []dto.ScoreResult
}

// LatestRanking returns the head of the most recent ranking run held in
// memory. ok is false when no run has completed since start-up.
func (e *CompositeEngine) LatestRanking() (scoreDate time.Time, scores []dto.ScoreResult, ok bool) {
	if e.cache == nil {
		return time.Time{}, nil, false
	}
	v, ok := e.cache.Get(latestRankingCacheKey)
	if !ok {
		return time.Time{}, nil, false
	}
	ranking := v.(cachedRanking)
	return ranking.ScoreDate, ranking.Scores, true
}

// TopN returns the n best securities of the latest ranking run ordered by field.
func (e *CompositeEngine) TopN(ctx context.Context, field dto.ScoreField, n int) ([]dto.RankedSecurity, error) {
	return e.Screen(ctx, dto.ScreeningFilter{SortBy: field, Limit: n})
}

// Screen filters the latest ranking run.
func (e *CompositeEngine) Screen(ctx context.Context, filter dto.ScreeningFilter) ([]dto.RankedSecurity, error) {
	if filter.SortBy == "" {
		filter.SortBy = dto.ScoreFieldComposite
	}
	if !filter.SortBy.Valid() {
		return nil, fmt.Errorf("invalid sort field %q", filter.SortBy)
	}
	if filter.Limit <= 0 {
		filter.Limit = e.topN
	}
	return e.scoreRepo.Screen(ctx, filter)
}
