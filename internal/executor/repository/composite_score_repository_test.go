package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/testutil"
)

func TestCompositeScoreRepository_Screen(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCompositeScoreRepository(db)
	ctx := context.Background()

	t.Run("empty before the first run", func(t *testing.T) {
		latest, err := repo.LatestScoreDate(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)

		ranked, err := repo.Screen(ctx, dto.ScreeningFilter{Limit: 5})
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})

	tcs := testutil.CreateSecurity(t, db, "TCS", "Technology")
	itc := testutil.CreateSecurity(t, db, "ITC", "Consumer")
	sbin := testutil.CreateSecurity(t, db, "SBIN", "Financials")
	delisted := testutil.CreateSecurity(t, db, "OLD", "Financials")
	require.NoError(t, db.Model(delisted).Update("is_active", false).Error)

	first := time.Date(2025, 3, 13, 18, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	rows := []entity.CompositeScore{
		{SecurityID: tcs.ID, FundamentalScore: 90, SentimentScore: 50, CompositeScore: 74, Rank: 1, ScoreDate: first},
		{SecurityID: tcs.ID, FundamentalScore: 70, SentimentScore: 55, CompositeScore: 64, Rank: 2, ScoreDate: second},
		{SecurityID: itc.ID, FundamentalScore: 60, SentimentScore: 90, CompositeScore: 72, Rank: 1, ScoreDate: second},
		{SecurityID: sbin.ID, FundamentalScore: 80, SentimentScore: 20, CompositeScore: 56, Rank: 3, ScoreDate: second},
		{SecurityID: delisted.ID, FundamentalScore: 99, SentimentScore: 99, CompositeScore: 99, Rank: 0, ScoreDate: second},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	tests := []struct {
		name    string
		filter  dto.ScreeningFilter
		symbols []string
	}{
		{"composite order of latest run", dto.ScreeningFilter{}, []string{"ITC", "TCS", "SBIN"}},
		{"fundamental order", dto.ScreeningFilter{SortBy: dto.ScoreFieldFundamental}, []string{"SBIN", "TCS", "ITC"}},
		{"sentiment order with limit", dto.ScreeningFilter{SortBy: dto.ScoreFieldSentiment, Limit: 2}, []string{"ITC", "TCS"}},
		{"sector filter", dto.ScreeningFilter{Sectors: []string{"Financials"}}, []string{"SBIN"}},
		{"minimum composite", dto.ScreeningFilter{MinCompositeScore: testutil.Float(60)}, []string{"ITC", "TCS"}},
		{"offset", dto.ScreeningFilter{Limit: 5, Offset: 1}, []string{"TCS", "SBIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked, err := repo.Screen(ctx, tt.filter)
			require.NoError(t, err)
			symbols := make([]string, 0, len(ranked))
			for _, r := range ranked {
				symbols = append(symbols, r.Symbol)
			}
			assert.Equal(t, tt.symbols, symbols)
		})
	}

	t.Run("invalid sort field", func(t *testing.T) {
		_, err := repo.Screen(ctx, dto.ScreeningFilter{SortBy: "rank; DROP TABLE securities"})
		assert.Error(t, err)
	})

	t.Run("latest by security", func(t *testing.T) {
		latest, err := repo.FindLatestBySecurity(ctx, tcs.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 2, latest.Rank)
	})
}

func TestCompositeScoreRepository_CreateBatch(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCompositeScoreRepository(db)
	ctx := context.Background()

	tcs := testutil.CreateSecurity(t, db, "TCS", "Technology")
	itc := testutil.CreateSecurity(t, db, "ITC", "Consumer")
	sbin := testutil.CreateSecurity(t, db, "SBIN", "Financials")

	earlier := &entity.CompositeScore{SecurityID: sbin.ID, CompositeScore: 40, Rank: 1, ScoreDate: time.Date(2025, 3, 13, 18, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, earlier))

	scoreDate := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	run := func() []*entity.CompositeScore {
		return []*entity.CompositeScore{
			{SecurityID: tcs.ID, CompositeScore: 80, Rank: 1, ScoreDate: scoreDate},
			{SecurityID: sbin.ID, CompositeScore: 70, Rank: 2, ScoreDate: scoreDate},
			{SecurityID: itc.ID, CompositeScore: 60, Rank: 3, ScoreDate: scoreDate},
		}
	}

	t.Run("nothing is stored when the transaction cannot start", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		failures, err := repo.CreateBatch(cancelled, run())
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, failures)

		ranked, err := repo.Screen(ctx, dto.ScreeningFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "SBIN", ranked[0].Symbol)
	})

	t.Run("a failing row is rolled back alone", func(t *testing.T) {
		rows := run()
		rows[1].ID = earlier.ID

		failures, err := repo.CreateBatch(ctx, rows)
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Error(t, failures[1])

		ranked, err := repo.Screen(ctx, dto.ScreeningFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "TCS", ranked[0].Symbol)
		assert.Equal(t, "ITC", ranked[1].Symbol)

		var kept entity.CompositeScore
		require.NoError(t, db.First(&kept, earlier.ID).Error)
		assert.Equal(t, 40.0, kept.CompositeScore)
	})
}
