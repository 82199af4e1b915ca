package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/testutil"
	"golang-stock-screener/pkg/logger"
)

func seedNews(t *testing.T, db *gorm.DB, title, url string, securityIDs ...uint) {
	t.Helper()
	_, err := repository.NewNewsItemRepository(db).CreateIgnoreConflict(context.Background(), &entity.NewsItem{
		Title:       title,
		URL:         url,
		PublishedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		ContentHash: NewsContentHash(url, title),
	}, securityIDs)
	require.NoError(t, err)
}

func TestSentimentAnalysis_AnalyzePending(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tcs := testutil.CreateSecurity(t, db, "TCS", "Technology")
	infy := testutil.CreateSecurity(t, db, "INFY", "Technology")
	seedNews(t, db, "TCS profit surge lifts IT stocks", "https://example.com/1", tcs.ID, infy.ID)
	seedNews(t, db, "TCS board meeting on Friday", "https://example.com/2", tcs.ID)

	svc := NewSentimentAnalysisService(
		newTestConfig(),
		logger.NewNop(),
		repository.NewNewsItemRepository(db),
		repository.NewSentimentRepository(db),
		repository.NewLexiconClassifierRepository(),
	).(*sentimentAnalysisService)
	svc.now = fixedClock(now)

	result, err := svc.AnalyzePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &dto.SentimentAnalysisResult{Pending: 3, Analyzed: 3, LowConfidence: 1}, result)

	var observations []entity.SentimentObservation
	require.NoError(t, db.Order("id").Find(&observations).Error)
	require.Len(t, observations, 3)
	flagged := 0
	for _, o := range observations {
		assert.Equal(t, "lexicon-v1", o.Model)
		if o.LowConfidence {
			flagged++
			assert.Equal(t, entity.SentimentNeutral, o.Label)
		}
	}
	assert.Equal(t, 1, flagged)

	t.Run("each pair is classified once", func(t *testing.T) {
		again, err := svc.AnalyzePending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Pending)
	})
}

func TestSentimentAnalysis_AllFailures(t *testing.T) {
	db := newDB(t)
	sec := testutil.CreateSecurity(t, db, "ITC", "Consumer")
	seedNews(t, db, "ITC demerger update", "https://example.com/itc", sec.ID)

	svc := NewSentimentAnalysisService(
		newTestConfig(),
		logger.NewNop(),
		repository.NewNewsItemRepository(db),
		repository.NewSentimentRepository(db),
		&fakeClassifier{err: errUpstream},
	)

	result, err := svc.AnalyzePending(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Len(t, result.ErrorMessages, 1)

	var count int64
	require.NoError(t, db.Model(&entity.SentimentObservation{}).Count(&count).Error)
	assert.Zero(t, count)
}
