package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/testutil"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/retry"

	"gorm.io/gorm"
)

var errUpstream = errors.New("upstream unavailable")

func newTestRunner(db *gorm.DB, maxRetries int) *IngestionRunner {
	return NewIngestionRunner(
		repository.NewIngestionAuditRepository(db),
		logger.NewNop(),
		retry.Policy{MaxRetries: maxRetries},
		time.Second,
	)
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scoring = config.Scoring{
		FundamentalWeight: 0.6,
		SentimentWeight:   0.4,
		Metrics:           config.DefaultMetricThresholds(),
	}
	cfg.Sentiment = config.Sentiment{BatchSize: 100, MinConfidence: 0.7, WindowDays: 30}
	cfg.Notification = config.Notification{TopN: 10, CacheTTL: time.Hour}
	cfg.News = config.News{MaxSymbolQueries: 5, MaxAgeHours: 24, MaxTitleLength: 500}
	return cfg
}

type fakeMarketData struct {
	mu      sync.Mutex
	records map[string]*dto.FundamentalRecord
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeMarketData) FetchFundamentals(_ context.Context, symbol string) (*dto.FundamentalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	record, ok := f.records[symbol]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

type fakeNewsSource struct {
	articles map[string][]dto.Article
	errs     map[string]error
}

func (f *fakeNewsSource) FetchArticles(_ context.Context, query string, _ time.Time) ([]dto.Article, error) {
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	articles := make([]dto.Article, len(f.articles[query]))
	copy(articles, f.articles[query])
	return articles, nil
}

type fakeClassifier struct {
	err error
}

func (f *fakeClassifier) Classify(context.Context, string, string) (*dto.Classification, error) {
	return nil, f.err
}

func (f *fakeClassifier) Model() string { return "fake" }

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}
