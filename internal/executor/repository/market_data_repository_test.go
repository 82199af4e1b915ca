package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/pkg/logger"
)

const quoteSummaryTCS = `{"quoteSummary":{"result":[{
  "price":{"longName":"Tata Consultancy Services Limited","regularMarketPrice":{"raw":3901.5},"marketCap":{"raw":14100000000000}},
  "summaryDetail":{"trailingPE":{"raw":29.4},"dividendYield":{"raw":0.018},"fiftyTwoWeekHigh":{"raw":4592.25},"fiftyTwoWeekLow":{"raw":3591.5}},
  "defaultKeyStatistics":{"priceToBook":{"raw":14.2}},
  "financialData":{"returnOnEquity":{"raw":0.512},"operatingMargins":{"raw":0.245},"debtToEquity":{"raw":9.5},"currentRatio":{"raw":2.6},"revenueGrowth":{"raw":0.053}},
  "assetProfile":{"sector":"Technology","industry":"Information Technology Services"}
}],"error":null}}`

func newTestMarketData(t *testing.T, handler http.HandlerFunc) *marketDataRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.MarketData.BaseURL = srv.URL
	cfg.MarketData.MaxRequestPerMinute = 6000
	cfg.MarketData.Timeout = 5 * time.Second
	cfg.MarketData.CacheTTL = time.Minute

	repo := NewMarketDataRepository(cfg, logger.NewNop()).(*marketDataRepository)
	repo.now = func() time.Time { return time.Date(2025, 3, 14, 20, 15, 0, 0, time.UTC) }
	return repo
}

func TestMarketDataRepository_FetchFundamentals(t *testing.T) {
	var calls atomic.Int32
	repo := newTestMarketData(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case strings.Contains(r.URL.Path, "TCS.NS"):
			_, _ = w.Write([]byte(quoteSummaryTCS))
		case strings.Contains(r.URL.Path, "MISSING.NS"):
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	record, err := repo.FetchFundamentals(ctx, "TCS")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "TCS", record.Symbol)
	assert.Equal(t, "Tata Consultancy Services Limited", record.Name)
	assert.Equal(t, "Technology", record.Sector)
	assert.Equal(t, "2025-03-15", record.DataDate.Format("2006-01-02"), "data date is the IST calendar day")
	assert.InDelta(t, 29.4, *record.PERatio, 1e-9)
	assert.InDelta(t, 51.2, *record.ROE, 1e-9)
	assert.InDelta(t, 0.095, *record.DebtToEquity, 1e-9)
	assert.InDelta(t, 0.245, *record.OperatingMargin, 1e-9)
	assert.InDelta(t, 3901.5, *record.CurrentPrice, 1e-9)
	assert.Nil(t, record.QuickRatio)

	t.Run("cached", func(t *testing.T) {
		_, err := repo.FetchFundamentals(ctx, "TCS")
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("unknown symbol", func(t *testing.T) {
		record, err := repo.FetchFundamentals(ctx, "MISSING")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := repo.FetchFundamentals(ctx, "BROKEN")
		assert.Error(t, err)
	})
}
