package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/delivery/consumer"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/service"
	"golang-stock-screener/pkg/common"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/redis"
	"golang-stock-screener/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	symbols    []string

	sortBy         string
	limit          int
	offset         int
	sectors        []string
	minComposite   float64
	minFundamental float64
	minSentiment   float64
	minMarketCap   float64
	maxMarketCap   float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the execution service",
	Run:   runServe,
}

var runCmd = &cobra.Command{
	Use:       "run <job-type>",
	Short:     "Runs one job in-process, without the task queue",
	ValidArgs: jobTypeNames(),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runJob,
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Prints the best securities of the latest ranking run",
	RunE:  runTop,
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Filters the latest ranking run",
	RunE:  runScreen,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := bootstrap(ctx)
	if err != nil {
		log.Fatalf("Failed to start execution service: %v", err)
	}
	defer cleanup()

	appLogger := app.logger
	appLogger.Info("Starting Execution Service", zap.String("name", app.cfg.App.Name))

	// Initialize Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     app.cfg.Redis.Host,
		Port:     app.cfg.Redis.Port,
		Password: app.cfg.Redis.Password,
		DB:       app.cfg.Redis.DB,
		PoolSize: app.cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	if err := redisClient.EnsureConsumerGroup(ctx, common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup); err != nil {
		appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
	}

	// Initialize executor service
	executorSvc := service.NewExecutorService(app.cfg, redisClient.Client, app.jobRepo, app.historyRepo, appLogger, app.notifier, app.strategies)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(app.cfg, executorSvc, appLogger)
	redisConsumer.Start(ctx)

	appLogger.Info("Execution service started. Waiting for tasks...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down execution service...")
	cancel()
	redisConsumer.Stop()
	appLogger.Info("Execution service stopped.")
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobType := entity.JobType(args[0])
	app, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	requested := utils.UniqueUpper(symbols)
	switch {
	case len(requested) == 0:
	case jobType == entity.JobTypeComputeScores:
		return scoreSymbols(ctx, cmd, app, requested)
	case jobType != entity.JobTypeIngestFundamentals:
		return fmt.Errorf("--symbols is not supported for %s", jobType)
	}

	var payload []byte
	if len(requested) > 0 {
		if payload, err = json.Marshal(map[string][]string{"symbols": requested}); err != nil {
			return err
		}
	}

	executorSvc := service.NewExecutorService(app.cfg, nil, app.jobRepo, app.historyRepo, app.logger, app.notifier, app.strategies)
	history, err := executorSvc.RunJob(ctx, jobType, payload)
	if history != nil {
		if printErr := printJSON(cmd, history); printErr != nil {
			return printErr
		}
	}
	return err
}

// scoreSymbols scores the listed symbols without persisting a ranking run.
func scoreSymbols(ctx context.Context, cmd *cobra.Command, app *components, requested []string) error {
	securities, err := app.securityRepo.FindBySymbols(ctx, requested)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(securities))
	for _, sec := range securities {
		found[sec.Symbol] = true
	}
	for _, symbol := range requested {
		if !found[symbol] {
			app.logger.Warn("Unknown symbol", logger.StringField("symbol", symbol))
		}
	}

	now := time.Now()
	results := make([]*dto.ScoreResult, 0, len(securities))
	for _, sec := range securities {
		result, err := app.engine.ScoreOne(ctx, sec.ID, now)
		if err != nil {
			return err
		}
		if result == nil {
			app.logger.Warn("No fundamental snapshot", logger.StringField("symbol", sec.Symbol))
			continue
		}
		results = append(results, result)
	}
	return printJSON(cmd, results)
}

func runTop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ranked, err := app.engine.TopN(ctx, dto.ScoreField(sortBy), limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, ranked)
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	filter := dto.ScreeningFilter{
		Sectors:             sectors,
		MinMarketCap:        flagValue(cmd, "min-market-cap", minMarketCap),
		MaxMarketCap:        flagValue(cmd, "max-market-cap", maxMarketCap),
		MinCompositeScore:   flagValue(cmd, "min-composite", minComposite),
		MinFundamentalScore: flagValue(cmd, "min-fundamental", minFundamental),
		MinSentimentScore:   flagValue(cmd, "min-sentiment", minSentiment),
		SortBy:              dto.ScoreField(sortBy),
		Limit:               limit,
		Offset:              offset,
	}
	ranked, err := app.engine.Screen(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(cmd, ranked)
}

// flagValue returns a pointer to v only when the flag was set explicitly.
func flagValue(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func jobTypeNames() []string {
	names := make([]string, 0, len(entity.JobTypes))
	for _, t := range entity.JobTypes {
		names = append(names, string(t))
	}
	return names
}

func main() {
	rootCmd := &cobra.Command{Use: "execution-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-executor.yaml", "Path to the configuration file")

	runCmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Restrict ingest_fundamentals or compute_scores to these symbols, e.g. TCS,INFY")

	for _, c := range []*cobra.Command{topCmd, screenCmd} {
		c.Flags().StringVar(&sortBy, "by", string(dto.ScoreFieldComposite), "Score to order by: composite_score, fundamental_score or sentiment_score")
		c.Flags().IntVar(&limit, "limit", 0, "Maximum number of securities (defaults to notification.top_n)")
	}
	screenCmd.Flags().IntVar(&offset, "offset", 0, "Number of securities to skip")
	screenCmd.Flags().StringSliceVar(&sectors, "sector", nil, "Only these sectors")
	screenCmd.Flags().Float64Var(&minComposite, "min-composite", 0, "Minimum composite score")
	screenCmd.Flags().Float64Var(&minFundamental, "min-fundamental", 0, "Minimum fundamental score")
	screenCmd.Flags().Float64Var(&minSentiment, "min-sentiment", 0, "Minimum sentiment score")
	screenCmd.Flags().Float64Var(&minMarketCap, "min-market-cap", 0, "Minimum market capitalisation")
	screenCmd.Flags().Float64Var(&maxMarketCap, "max-market-cap", 0, "Maximum market capitalisation")

	rootCmd.AddCommand(serveCmd, runCmd, topCmd, screenCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing execution-service CLI: %s\n", err)
		os.Exit(1)
	}
}
