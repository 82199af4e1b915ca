package main

import (
	"context"
	"fmt"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/internal/executor/service"
	"golang-stock-screener/internal/executor/strategy"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/postgres"
	"golang-stock-screener/pkg/telegram"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// components holds everything the execution service commands share.
type components struct {
	cfg        *config.Config
	logger     *logger.Logger
	notifier   telegram.Notifier
	strategies []strategy.JobExecutionStrategy

	securityRepo repository.SecurityRepository
	jobRepo      repository.JobRepository
	historyRepo  repository.TaskExecutionHistoryRepository

	fundamentals service.FundamentalIngestionService
	news         service.NewsIngestionService
	sentiment    service.SentimentAnalysisService
	engine       *service.CompositeEngine
}

func bootstrap(ctx context.Context) (*components, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	cleanup := func() {
		if sqlDB, err := db.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = appLogger.Sync()
	}

	classifier, err := newClassifier(ctx, cfg, appLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	notifier := telegram.NewNoopNotifier()
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize Telegram notifier: %w", err)
		}
	} else {
		appLogger.Warn("Telegram bot token not configured, notifications disabled")
	}

	// Initialize repositories
	securityRepo := repository.NewSecurityRepository(db.DB)
	snapshotRepo := repository.NewFundamentalSnapshotRepository(db.DB)
	newsRepo := repository.NewNewsItemRepository(db.DB)
	sentimentRepo := repository.NewSentimentRepository(db.DB)
	scoreRepo := repository.NewCompositeScoreRepository(db.DB)
	auditRepo := repository.NewIngestionAuditRepository(db.DB)
	marketData := repository.NewMarketDataRepository(cfg, appLogger)
	newsSource := repository.NewNewsSourceRepository(cfg, appLogger)

	// Initialize services
	runner := service.NewIngestionRunner(auditRepo, appLogger, cfg.Ingestion.Retry, cfg.Ingestion.AttemptTimeout)
	rankingCache := cache.New(cfg.Notification.CacheTTL, 2*cfg.Notification.CacheTTL)

	c := &components{
		cfg:          cfg,
		logger:       appLogger,
		notifier:     notifier,
		securityRepo: securityRepo,
		jobRepo:      repository.NewJobRepository(db.DB),
		historyRepo:  repository.NewTaskExecutionHistoryRepository(db.DB),
		fundamentals: service.NewFundamentalIngestionService(cfg, appLogger, runner, securityRepo, snapshotRepo, marketData),
		news:         service.NewNewsIngestionService(cfg, appLogger, runner, securityRepo, newsRepo, newsSource),
		sentiment:    service.NewSentimentAnalysisService(cfg, appLogger, newsRepo, sentimentRepo, classifier),
		engine: service.NewCompositeEngine(
			cfg,
			appLogger,
			securityRepo,
			snapshotRepo,
			scoreRepo,
			service.NewSentimentAggregator(sentimentRepo),
			notifier,
			rankingCache,
		),
	}

	// Initialize Strategies
	c.strategies = []strategy.JobExecutionStrategy{
		strategy.NewIngestFundamentalsStrategy(appLogger, c.fundamentals),
		strategy.NewIngestNewsStrategy(c.news),
		strategy.NewAnalyzeSentimentStrategy(c.sentiment),
		strategy.NewComputeScoresStrategy(c.engine),
	}

	appLogger.Info("Execution components initialized",
		zap.String("classifier", classifier.Model()),
		zap.String("formula", c.engine.Formula()),
	)
	return c, cleanup, nil
}

func newClassifier(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.SentimentClassifierRepository, error) {
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini AI client: %w", err)
		}
		return repository.NewGeminiClassifierRepository(cfg, log, genAiClient)
	case "openai":
		return repository.NewOpenAIClassifierRepository(cfg, log)
	case "lexicon", "":
		return repository.NewLexiconClassifierRepository(), nil
	default:
		return nil, fmt.Errorf("invalid AI provider %q", cfg.AI.Provider)
	}
}
