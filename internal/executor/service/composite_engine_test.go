package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/testutil"
	"golang-stock-screener/pkg/logger"
)

func newTestEngine(db *gorm.DB, notifier *fakeNotifier, asOf time.Time) *CompositeEngine {
	cfg := newTestConfig()
	cfg.Notification.TopN = 2
	engine := NewCompositeEngine(
		cfg,
		logger.NewNop(),
		repository.NewSecurityRepository(db),
		repository.NewFundamentalSnapshotRepository(db),
		repository.NewCompositeScoreRepository(db),
		NewSentimentAggregator(repository.NewSentimentRepository(db)),
		notifier,
		cache.New(time.Hour, time.Hour),
	)
	engine.now = fixedClock(asOf)
	return engine
}

func createSnapshot(t *testing.T, db *gorm.DB, securityID uint, day time.Time, roe float64) {
	t.Helper()
	require.NoError(t, db.Create(&entity.FundamentalSnapshot{
		SecurityID: securityID,
		DataDate:   day,
		ROE:        testutil.Float(roe),
	}).Error)
}

func TestCompositeEngine_Compose(t *testing.T) {
	engine := newTestEngine(newDB(t), &fakeNotifier{}, time.Now())

	result := engine.compose(
		&entity.Security{ID: 7, Symbol: "LT"},
		dto.FundamentalScore{TotalScore: 80},
		dto.SentimentAggregate{Score0To100: 60, AverageScore: 0.2, Count: 3, PositiveCount: 2, NeutralCount: 1, PeriodDays: 30},
	)

	assert.Equal(t, 72.0, result.CompositeScore)
	assert.Equal(t, "0.60 * fundamental + 0.40 * sentiment", result.Breakdown.Composite.Formula)
	assert.Equal(t, 48.0, result.Breakdown.Fundamental.WeightedScore)
	assert.Equal(t, 24.0, result.Breakdown.Sentiment.WeightedScore)
	assert.Equal(t, 3, result.Breakdown.Sentiment.ArticleCount)
	assert.Equal(t, 2, result.Breakdown.Sentiment.PositiveCount)
}

func TestCompositeEngine_ScoreAll(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	asOf := time.Date(2025, 3, 14, 18, 0, 0, 500, time.UTC)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tcs := testutil.CreateSecurity(t, db, "TCS", "Technology")
	noData := testutil.CreateSecurity(t, db, "NODATA", "Technology")
	itc := testutil.CreateSecurity(t, db, "ITC", "Consumer")
	infy := testutil.CreateSecurity(t, db, "INFY", "Technology")

	createSnapshot(t, db, tcs.ID, day.AddDate(0, 0, -1), 10)
	createSnapshot(t, db, tcs.ID, day, 25)
	createSnapshot(t, db, itc.ID, day, 10)
	createSnapshot(t, db, infy.ID, day, 25)

	notifier := &fakeNotifier{}
	engine := newTestEngine(db, notifier, asOf)

	result, err := engine.ScoreAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scored)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 3, result.Persisted)
	assert.Equal(t, asOf.Truncate(time.Second), result.ScoreDate)

	// TCS and INFY tie; the stable sort keeps catalog order.
	require.Len(t, result.Scores, 3)
	assert.Equal(t, []string{"TCS", "INFY", "ITC"}, []string{result.Scores[0].Symbol, result.Scores[1].Symbol, result.Scores[2].Symbol})
	for i, s := range result.Scores {
		assert.Equal(t, i+1, s.Rank)
	}
	// ROE 25 scores 100 on the only metric with data, sentiment is neutral.
	assert.Equal(t, 100.0, result.Scores[0].FundamentalScore)
	assert.Equal(t, 50.0, result.Scores[0].SentimentScore)
	assert.Equal(t, 80.0, result.Scores[0].CompositeScore)

	var stored []entity.CompositeScore
	require.NoError(t, db.Order("rank").Find(&stored).Error)
	require.Len(t, stored, 3)
	for _, s := range stored {
		assert.True(t, s.ScoreDate.Equal(result.ScoreDate))
		assert.NotEqual(t, noData.ID, s.SecurityID)
	}
	var breakdown dto.ScoreBreakdown
	require.NoError(t, json.Unmarshal(stored[0].Breakdown, &breakdown))
	assert.Equal(t, 80.0, breakdown.Composite.Score)
	assert.Contains(t, breakdown.Fundamental.Breakdown, entity.MetricROE)

	t.Run("digest and cache hold the top entries", func(t *testing.T) {
		require.Len(t, notifier.messages, 1)
		assert.Contains(t, notifier.messages[0], "#1 TCS")
		assert.NotContains(t, notifier.messages[0], "ITC")

		scoreDate, top, ok := engine.LatestRanking()
		require.True(t, ok)
		assert.Equal(t, result.ScoreDate, scoreDate)
		assert.Len(t, top, 2)
	})

	t.Run("top n reads the latest run", func(t *testing.T) {
		top, err := engine.TopN(ctx, dto.ScoreFieldComposite, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "TCS", top[0].Symbol)
		assert.Equal(t, 1, top[0].Rank)

		_, err = engine.TopN(ctx, "rank", 2)
		assert.Error(t, err)
	})
}

// runObservingScoreRepository records what a latest-run reader sees around
// each batch write. collideWith, when set, gives the row of that security the
// primary key of an existing row so that its insert fails.
type runObservingScoreRepository struct {
	repository.CompositeScoreRepository
	collideWith   map[uint]uint
	batches       int
	visibleAfter  []int
	visibleBefore []int
}

func (r *runObservingScoreRepository) visible(ctx context.Context) int {
	ranked, err := r.Screen(ctx, dto.ScreeningFilter{Limit: 100})
	if err != nil {
		return -1
	}
	return len(ranked)
}

func (r *runObservingScoreRepository) CreateBatch(ctx context.Context, scores []*entity.CompositeScore) (map[int]error, error) {
	r.batches++
	r.visibleBefore = append(r.visibleBefore, r.visible(ctx))
	for _, score := range scores {
		if id, ok := r.collideWith[score.SecurityID]; ok {
			score.ID = id
		}
	}
	failures, err := r.CompositeScoreRepository.CreateBatch(ctx, scores)
	r.visibleAfter = append(r.visibleAfter, r.visible(ctx))
	return failures, err
}

type failingSnapshotRepository struct {
	repository.FundamentalSnapshotRepository
	failFor uint
}

func (r *failingSnapshotRepository) FindLatest(ctx context.Context, securityID uint) (*entity.FundamentalSnapshot, error) {
	if securityID == r.failFor {
		return nil, errors.New("connection reset")
	}
	return r.FundamentalSnapshotRepository.FindLatest(ctx, securityID)
}

func TestCompositeEngine_ScoreAllWritesOneBatch(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	asOf := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	for i, symbol := range []string{"TCS", "ITC", "INFY"} {
		sec := testutil.CreateSecurity(t, db, symbol, "Technology")
		createSnapshot(t, db, sec.ID, day, float64(10+5*i))
	}

	engine := newTestEngine(db, &fakeNotifier{}, asOf)
	observer := &runObservingScoreRepository{CompositeScoreRepository: repository.NewCompositeScoreRepository(db)}
	engine.scoreRepo = observer

	result, err := engine.ScoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Persisted)
	assert.Equal(t, 1, observer.batches)
	assert.Equal(t, []int{0}, observer.visibleBefore, "nothing of the run is readable before it commits")
	assert.Equal(t, []int{3}, observer.visibleAfter, "the whole run is readable after it commits")
}

func TestCompositeEngine_ScoreAllAbsorbsFailures(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*gorm.DB, []*entity.Security) {
		db := newDB(t)
		var securities []*entity.Security
		for i, symbol := range []string{"TCS", "ITC", "INFY", "SBIN"} {
			sec := testutil.CreateSecurity(t, db, symbol, "Technology")
			createSnapshot(t, db, sec.ID, day, float64(25-5*i))
			securities = append(securities, sec)
		}
		return db, securities
	}

	t.Run("a security that fails to score is counted and the rest are ranked", func(t *testing.T) {
		db, securities := setup(t)
		engine := newTestEngine(db, &fakeNotifier{}, asOf)
		engine.snapshotRepo = &failingSnapshotRepository{
			FundamentalSnapshotRepository: repository.NewFundamentalSnapshotRepository(db),
			failFor:                       securities[1].ID,
		}

		result, err := engine.ScoreAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Errors)
		assert.Equal(t, 3, result.Scored)
		assert.Equal(t, 3, result.Persisted)

		symbols := make([]string, 0, len(result.Scores))
		for i, s := range result.Scores {
			assert.Equal(t, i+1, s.Rank, "ranks have no gaps")
			symbols = append(symbols, s.Symbol)
		}
		assert.Equal(t, []string{"TCS", "INFY", "SBIN"}, symbols)
	})

	t.Run("a failed write skips only that record", func(t *testing.T) {
		db, securities := setup(t)
		previous := &entity.CompositeScore{SecurityID: securities[3].ID, CompositeScore: 10, Rank: 1, ScoreDate: asOf.Add(-24 * time.Hour)}
		require.NoError(t, db.Create(previous).Error)

		engine := newTestEngine(db, &fakeNotifier{}, asOf)
		engine.scoreRepo = &runObservingScoreRepository{
			CompositeScoreRepository: repository.NewCompositeScoreRepository(db),
			collideWith:              map[uint]uint{securities[2].ID: previous.ID},
		}

		result, err := engine.ScoreAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, result.Scored)
		assert.Equal(t, 1, result.WriteFailures)
		assert.Equal(t, 3, result.Persisted)

		var stored []entity.CompositeScore
		require.NoError(t, db.Where("score_date = ?", result.ScoreDate).Order("rank").Find(&stored).Error)
		require.Len(t, stored, 3)
		for _, s := range stored {
			assert.NotEqual(t, securities[2].ID, s.SecurityID)
		}

		var kept entity.CompositeScore
		require.NoError(t, db.First(&kept, previous.ID).Error)
		assert.Equal(t, securities[3].ID, kept.SecurityID)
	})
}

func TestCompositeEngine_ScoreOne(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	asOf := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	engine := newTestEngine(db, &fakeNotifier{}, asOf)

	sec := testutil.CreateSecurity(t, db, "SBIN", "Financials")

	result, err := engine.ScoreOne(ctx, sec.ID, asOf)
	require.NoError(t, err)
	assert.Nil(t, result, "no snapshot is not an error")

	createSnapshot(t, db, sec.ID, asOf, 15)
	result, err = engine.ScoreOne(ctx, sec.ID, asOf)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 70.0, result.FundamentalScore)
	assert.Equal(t, 62.0, result.CompositeScore)

	_, err = engine.ScoreOne(ctx, 9999, asOf)
	assert.ErrorIs(t, err, ErrSecurityNotFound)
}
