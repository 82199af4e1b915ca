package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"golang-stock-screener/pkg/config"
	"golang-stock-screener/pkg/retry"
)

var (
	// ErrInvalidWeights is returned when the composite weights do not sum to 1.
	ErrInvalidWeights = errors.New("fundamental and sentiment weights must sum to 1.0")
	// ErrInvalidThreshold is returned for a metric threshold that cannot be scored.
	ErrInvalidThreshold = errors.New("invalid metric threshold")
)

// WeightTolerance is the allowed deviation of fundamental+sentiment weights from 1.
const WeightTolerance = 0.01

// Executor holds executor-specific configuration.
type Executor struct {
	MaxConcurrentTasks                      int           `mapstructure:"max_concurrent_tasks"`
	RedisStreamTaskExecutionTimeout         time.Duration `mapstructure:"redis_stream_task_execution_timeout"`
	RedisStreamTaskExecutionRetryInterval   time.Duration `mapstructure:"redis_stream_task_execution_retry_interval"`
	RedisStreamTaskExecutionMaxIdleDuration time.Duration `mapstructure:"redis_stream_task_execution_max_idle_duration"`
	RedisStreamTaskExecutionMaxRetry        int           `mapstructure:"redis_stream_task_execution_max_retry"`
	DefaultJobTimeout                       time.Duration `mapstructure:"default_job_timeout"`
}

// Ingestion holds the retry policy shared by every ingestion run.
type Ingestion struct {
	Retry          retry.Policy  `mapstructure:"retry"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	TrackedSymbols []string      `mapstructure:"tracked_symbols"`
}

// News holds news ingestion settings.
type News struct {
	BaseURL          string   `mapstructure:"base_url"`
	Locale           string   `mapstructure:"locale"`
	Queries          []string `mapstructure:"queries"`
	MaxSymbolQueries int      `mapstructure:"max_symbol_queries"`
	MaxAgeHours      int      `mapstructure:"max_age_hours"`
	MaxItemsPerQuery int      `mapstructure:"max_items_per_query"`
	FetchContent     bool     `mapstructure:"fetch_content"`
	MaxTitleLength   int      `mapstructure:"max_title_length"`
}

// Sentiment holds sentiment analysis settings.
type Sentiment struct {
	BatchSize     int     `mapstructure:"batch_size"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	WindowDays    int     `mapstructure:"window_days"`
}

// MetricThreshold configures how one fundamental metric is normalised.
type MetricThreshold struct {
	Name      string  `mapstructure:"name" json:"name"`
	Excellent float64 `mapstructure:"excellent" json:"excellent"`
	Good      float64 `mapstructure:"good" json:"good"`
	Weight    float64 `mapstructure:"weight" json:"weight"`
	Inverse   bool    `mapstructure:"inverse" json:"inverse"`
}

// Scoring holds the composite weights and metric thresholds.
type Scoring struct {
	FundamentalWeight float64           `mapstructure:"fundamental_weight"`
	SentimentWeight   float64           `mapstructure:"sentiment_weight"`
	Metrics           []MetricThreshold `mapstructure:"metrics"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int     `mapstructure:"max_token_per_minute"`
	Temperature         float32 `mapstructure:"temperature"`
}

// OpenAI holds the configuration for an OpenAI-compatible chat completion
// API. Groq and OpenRouter are used through their OpenAI-compatible base URLs.
type OpenAI struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
	Temperature         float32       `mapstructure:"temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// AI selects the sentiment classifier provider ("gemini", "openai" or "lexicon").
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// MarketData holds the configuration for the market data API.
type MarketData struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Timeout             time.Duration `mapstructure:"timeout"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// Notification controls the ranking digest sent after each scoring run.
type Notification struct {
	TopN     int           `mapstructure:"top_n"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Config holds the full configuration for the executor service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	Executor     Executor        `mapstructure:"executor"`
	Ingestion    Ingestion       `mapstructure:"ingestion"`
	News         News            `mapstructure:"news"`
	Sentiment    Sentiment       `mapstructure:"sentiment"`
	Scoring      Scoring         `mapstructure:"scoring"`
	Gemini       Gemini          `mapstructure:"gemini"`
	OpenAI       OpenAI          `mapstructure:"openai"`
	AI           AI              `mapstructure:"ai"`
	Telegram     Telegram        `mapstructure:"telegram"`
	MarketData   MarketData      `mapstructure:"market_data"`
	Notification Notification    `mapstructure:"notification"`
}

var defaults = map[string]interface{}{
	"app.name": "execution-service",

	"executor.max_concurrent_tasks":                1,
	"executor.redis_stream_task_execution_timeout": "2h",
	// must exceed the longest job timeout, otherwise running tasks are reclaimed
	"executor.redis_stream_task_execution_max_idle_duration": "3h",
	"executor.redis_stream_task_execution_retry_interval":    "5m",
	"executor.redis_stream_task_execution_max_retry":         3,
	"executor.default_job_timeout":                           "1h",

	"ingestion.retry.max_retries": 3,
	"ingestion.retry.base_delay":  "2s",
	"ingestion.retry.max_delay":   "60s",
	"ingestion.attempt_timeout":   "10m",
	"ingestion.tracked_symbols": []string{
		"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK",
		"BHARTIARTL", "ITC", "SBIN", "LT", "HINDUNILVR",
	},

	"news.base_url":            "https://news.google.com/rss/search",
	"news.locale":              "hl=en-IN&gl=IN&ceid=IN:en",
	"news.queries":             []string{"Indian stock market", "NSE BSE", "NIFTY"},
	"news.max_symbol_queries":  5,
	"news.max_age_hours":       24,
	"news.max_items_per_query": 50,
	"news.fetch_content":       false,
	"news.max_title_length":    500,

	"sentiment.batch_size":     100,
	"sentiment.min_confidence": 0.7,
	"sentiment.window_days":    30,

	"scoring.fundamental_weight": 0.6,
	"scoring.sentiment_weight":   0.4,

	"gemini.model":                  "gemini-2.0-flash",
	"gemini.max_request_per_minute": 15,
	"gemini.max_token_per_minute":   1000000,
	"gemini.temperature":            0.1,

	"openai.base_url":               "https://api.openai.com/v1",
	"openai.model":                  "gpt-4o-mini",
	"openai.max_request_per_minute": 60,
	"openai.max_token_per_minute":   200000,
	"openai.temperature":            0.1,
	"openai.timeout":                "90s",

	"ai.provider": "lexicon",

	"market_data.base_url":               "https://query2.finance.yahoo.com",
	"market_data.max_request_per_minute": 60,
	"market_data.timeout":                "15s",
	"market_data.cache_ttl":              "30m",

	"notification.top_n":     10,
	"notification.cache_ttl": "24h",
}

// DefaultMetricThresholds returns the seven scored fundamental metrics.
func DefaultMetricThresholds() []MetricThreshold {
	return []MetricThreshold{
		{Name: "pe_ratio", Excellent: 15, Good: 25, Weight: 0.15, Inverse: true},
		{Name: "pb_ratio", Excellent: 2, Good: 3, Weight: 0.10, Inverse: true},
		{Name: "roe", Excellent: 20, Good: 15, Weight: 0.20},
		{Name: "debt_to_equity", Excellent: 0.5, Good: 1.0, Weight: 0.15, Inverse: true},
		{Name: "current_ratio", Excellent: 2.0, Good: 1.5, Weight: 0.10},
		{Name: "operating_margin", Excellent: 0.20, Good: 0.10, Weight: 0.15},
		{Name: "revenue_growth", Excellent: 0.20, Good: 0.10, Weight: 0.15},
	}
}

// Validate checks the composite weights and every metric threshold.
func (s Scoring) Validate() error {
	sum := s.FundamentalWeight + s.SentimentWeight
	if s.FundamentalWeight < 0 || s.SentimentWeight < 0 || math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: fundamental=%.4f sentiment=%.4f sum=%.4f", ErrInvalidWeights, s.FundamentalWeight, s.SentimentWeight, sum)
	}

	seen := make(map[string]bool, len(s.Metrics))
	for _, m := range s.Metrics {
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate metric %q", ErrInvalidThreshold, m.Name)
		}
		seen[m.Name] = true

		if m.Weight <= 0 {
			return fmt.Errorf("%w: %s weight must be positive", ErrInvalidThreshold, m.Name)
		}
		if m.Inverse {
			if m.Excellent >= m.Good {
				return fmt.Errorf("%w: %s is inverse, excellent (%.4f) must be below good (%.4f)", ErrInvalidThreshold, m.Name, m.Excellent, m.Good)
			}
			continue
		}
		if m.Good <= 0 || m.Excellent <= m.Good {
			return fmt.Errorf("%w: %s requires excellent (%.4f) > good (%.4f) > 0", ErrInvalidThreshold, m.Name, m.Excellent, m.Good)
		}
	}
	return nil
}

// Load loads the executor configuration from the given path and validates
// the scoring settings. An invalid scoring configuration is an error so the
// service refuses to start.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg, defaults); err != nil {
		return nil, err
	}
	if len(cfg.Scoring.Metrics) == 0 {
		cfg.Scoring.Metrics = DefaultMetricThresholds()
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	return &cfg, nil
}
