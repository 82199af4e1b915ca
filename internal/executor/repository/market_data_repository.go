package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/common"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const quoteSummaryModules = "price,summaryDetail,defaultKeyStatistics,financialData,assetProfile"

// MarketDataRepository fetches fundamentals for a symbol. A nil record with a
// nil error means the source has no data for the symbol.
type MarketDataRepository interface {
	FetchFundamentals(ctx context.Context, symbol string) (*dto.FundamentalRecord, error)
}

type marketDataRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	cache          *cache.Cache
	now            func() time.Time
}

// NewMarketDataRepository creates a rate limited, cached quoteSummary client.
func NewMarketDataRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	perMinute := cfg.MarketData.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(perMinute)
	timeout := cfg.MarketData.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &marketDataRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		cache:          cache.New(cfg.MarketData.CacheTTL, 2*cfg.MarketData.CacheTTL),
		now:            utils.TimeNowIST,
	}
}

func (r *marketDataRepository) FetchFundamentals(ctx context.Context, symbol string) (*dto.FundamentalRecord, error) {
	if cached, ok := r.cache.Get(symbol); ok {
		record := cached.(dto.FundamentalRecord)
		return &record, nil
	}

	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		r.cfg.MarketData.BaseURL, url.PathEscape(symbol+common.NSESymbolSuffix), quoteSummaryModules)

	body, status, err := r.sendRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		r.log.WarnContext(ctx, "Market data not found", logger.StringField("symbol", symbol))
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("market data request for %s returned status %d", symbol, status)
	}

	var response dto.QuoteSummaryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode market data for %s: %w", symbol, err)
	}
	if response.QuoteSummary.Error != nil {
		r.log.WarnContext(ctx, "Market data source returned an error",
			logger.StringField("symbol", symbol),
			logger.StringField("code", response.QuoteSummary.Error.Code),
			logger.StringField("description", response.QuoteSummary.Error.Description))
		return nil, nil
	}
	if len(response.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	record := r.toRecord(symbol, &response.QuoteSummary.Result[0])
	r.cache.Set(symbol, *record, cache.DefaultExpiration)
	return record, nil
}

// toRecord maps the payload onto the units used by the scoring thresholds:
// ROE in percent, margins and growth as fractions, debt-to-equity as a ratio.
func (r *marketDataRepository) toRecord(symbol string, res *dto.QuoteSummaryResult) *dto.FundamentalRecord {
	fd := res.FinancialData
	sd := res.SummaryDetail

	pe := sd.TrailingPE.Raw
	if pe == nil {
		pe = sd.ForwardPE.Raw
	}
	price := fd.CurrentPrice.Raw
	if price == nil {
		price = res.Price.RegularMarketPrice.Raw
	}

	name := res.Price.LongName
	if name == "" {
		name = res.Price.ShortName
	}

	return &dto.FundamentalRecord{
		Symbol:          symbol,
		Name:            name,
		Sector:          res.AssetProfile.Sector,
		Industry:        res.AssetProfile.Industry,
		DataDate:        utils.StartOfDayIST(r.now()),
		MarketCap:       res.Price.MarketCap.Raw,
		PERatio:         pe,
		PBRatio:         res.DefaultKeyStatistics.PriceToBook.Raw,
		PSRatio:         sd.PriceToSalesTrailing12Months.Raw,
		DividendYield:   sd.DividendYield.Raw,
		ROE:             scale(fd.ReturnOnEquity.Raw, 100),
		ROA:             scale(fd.ReturnOnAssets.Raw, 100),
		OperatingMargin: fd.OperatingMargins.Raw,
		NetMargin:       fd.ProfitMargins.Raw,
		DebtToEquity:    scale(fd.DebtToEquity.Raw, 0.01),
		CurrentRatio:    fd.CurrentRatio.Raw,
		QuickRatio:      fd.QuickRatio.Raw,
		RevenueGrowth:   fd.RevenueGrowth.Raw,
		EarningsGrowth:  fd.EarningsGrowth.Raw,
		CurrentPrice:    price,
		Week52High:      sd.FiftyTwoWeekHigh.Raw,
		Week52Low:       sd.FiftyTwoWeekLow.Raw,
	}
}

func (r *marketDataRepository) sendRequest(ctx context.Context, endpoint string) ([]byte, int, error) {
	fields := []zap.Field{
		zap.String("url", endpoint),
		zap.Int("max_request_per_minute", r.cfg.MarketData.MaxRequestPerMinute),
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to wait for request limit", fields...)
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to create new http request", fields...)
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to send request to market data API", fields...)
		return nil, 0, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to read response body from market data API", fields...)
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * factor
	return &scaled
}
