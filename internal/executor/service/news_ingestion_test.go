package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/testutil"
	"golang-stock-screener/pkg/logger"
)

func TestSymbolMatcher(t *testing.T) {
	matcher := NewSymbolMatcher([]entity.Security{
		{ID: 1, Symbol: "LT"},
		{ID: 2, Symbol: "INFY"},
		{ID: 3, Symbol: "M&M"},
	})

	tests := []struct {
		name    string
		article dto.Article
		want    []uint
	}{
		{"whole word", dto.Article{Title: "Infy shares rise"}, []uint{2}},
		{"inside another word", dto.Article{Title: "Quarterly RESULT beats INFYX estimates"}, nil},
		{"punctuation boundary", dto.Article{Summary: "Orders for L&T, LT and M&M."}, []uint{1, 3}},
		{"symbol query", dto.Article{Title: "Bengaluru firm wins deal", Queries: []string{SymbolQuery("INFY")}}, []uint{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matcher.Match(tt.article))
		})
	}
}

func TestNewsIngestion(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tcs := testutil.CreateSecurity(t, db, "TCS", "Technology")
	infy := testutil.CreateSecurity(t, db, "INFY", "Technology")

	source := &fakeNewsSource{
		articles: map[string][]dto.Article{
			"NIFTY": {
				{Title: "TCS bags $1bn deal", URL: "https://example.com/a", PublishedAt: now},
				{Title: "Markets close flat", URL: "https://example.com/b", PublishedAt: now},
				{Title: "INFY and TCS results today", URL: "https://example.com/c", PublishedAt: now},
				{Title: "TCS rumour", URL: "not a url", PublishedAt: now},
			},
			"TCS NSE stock": {
				{Title: "TCS bags $1bn deal", URL: "https://example.com/a", PublishedAt: now},
			},
		},
	}

	cfg := newTestConfig()
	cfg.News.Queries = []string{"NIFTY"}
	cfg.News.MaxSymbolQueries = 1
	cfg.Ingestion.TrackedSymbols = []string{"TCS", "INFY"}

	svc := NewNewsIngestionService(
		cfg,
		logger.NewNop(),
		newTestRunner(db, 0),
		repository.NewSecurityRepository(db),
		repository.NewNewsItemRepository(db),
		source,
	).(*newsIngestionService)
	svc.now = fixedClock(now)

	assert.Equal(t, []string{"NIFTY", "TCS NSE stock"}, svc.queries())

	result, err := svc.IngestLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.RunStateSucceeded, result.State)
	assert.Equal(t, dto.IngestionCounts{Fetched: 4, Inserted: 2, Skipped: 2}, result.Counts)

	var items []entity.NewsItem
	require.NoError(t, db.Preload("Securities").Order("url").Find(&items).Error)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.com/a", items[0].URL)
	assert.Equal(t, []string{"NIFTY", "TCS NSE stock"}, []string(items[0].MatchedQueries))
	assert.Equal(t, NewsContentHash(items[0].URL, items[0].Title), items[0].ContentHash)
	require.Len(t, items[0].Securities, 1)
	assert.Equal(t, tcs.ID, items[0].Securities[0].SecurityID)

	linked := []uint{}
	for _, l := range items[1].Securities {
		linked = append(linked, l.SecurityID)
	}
	assert.ElementsMatch(t, []uint{tcs.ID, infy.ID}, linked)

	t.Run("identical results are skipped", func(t *testing.T) {
		again, err := svc.IngestLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, dto.RunStateSkipped, again.State)
	})

	t.Run("already stored articles are skipped", func(t *testing.T) {
		source.articles["NIFTY"] = append(source.articles["NIFTY"], dto.Article{
			Title: "INFY raises guidance", URL: "https://example.com/d", PublishedAt: now,
		})
		result, err := svc.IngestLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, dto.IngestionCounts{Fetched: 5, Inserted: 1, Skipped: 4}, result.Counts)
	})

	t.Run("all queries failing", func(t *testing.T) {
		source.errs = map[string]error{"NIFTY": errUpstream, "TCS NSE stock": errUpstream}
		result, err := svc.IngestLatest(ctx)
		require.ErrorIs(t, err, errUpstream)
		assert.Equal(t, dto.RunStateFailed, result.State)
	})
}
