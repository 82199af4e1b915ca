package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-screener/internal/scheduler/config"
	"golang-stock-screener/internal/scheduler/repository"
	"golang-stock-screener/internal/scheduler/service"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/postgres"
	"golang-stock-screener/pkg/redis"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	configPath   string
	historyJob   string
	historyLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scheduling service",
	Run:   runServe,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Lists scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, db *gorm.DB) error {
			jobSvc := service.NewJobService(cfg, repository.NewJobRepository(db), repository.NewTaskScheduleRepository(db), appLogger)
			jobs, err := jobSvc.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, jobs)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists recent task executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, db *gorm.DB) error {
			historySvc := service.NewExecutionHistoryService(repository.NewJobRepository(db), repository.NewTaskExecutionHistoryRepository(db), appLogger)
			histories, err := historySvc.ListRecent(ctx, historyJob, historyLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd, histories)
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause <job-name>",
	Short: "Pauses the schedule of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(false),
}

var resumeCmd = &cobra.Command{
	Use:   "resume <job-name>",
	Short: "Resumes the schedule of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(true),
}

func setActive(active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, db *gorm.DB) error {
			scheduleSvc := service.NewScheduleService(repository.NewJobRepository(db), repository.NewTaskScheduleRepository(db), appLogger)
			return scheduleSvc.SetActive(ctx, args[0], active)
		})
	}
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, db, cleanup, err := setup()
	if err != nil {
		log.Fatalf("Failed to start scheduling service: %v", err)
	}
	defer cleanup()

	appLogger.Info("Starting Scheduling Service", logger.Field("name", cfg.App.Name))

	// Initialize Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	scheduleRepo := repository.NewTaskScheduleRepository(db)
	historyRepo := repository.NewTaskExecutionHistoryRepository(db)
	taskQueue := repository.NewRedisTaskQueueRepository(redisClient.Client, cfg.Redis.StreamMaxLen)

	// Register the configured jobs before the first poll
	jobSvc := service.NewJobService(cfg, jobRepo, scheduleRepo, appLogger)
	if err := jobSvc.Sync(ctx); err != nil {
		appLogger.Fatal("Failed to sync jobs", logger.ErrorField(err))
	}

	schedulerSvc := service.NewSchedulerService(cfg, scheduleRepo, historyRepo, taskQueue, appLogger)
	appLogger.Info("Scheduler started", logger.Field("polling_interval", cfg.Scheduler.PollingInterval.String()), logger.IntField("jobs", len(cfg.Scheduler.Jobs)))
	schedulerSvc.Start(ctx)

	appLogger.Info("Scheduling service stopped.")
}

func setup() (*config.Config, *logger.Logger, *gorm.DB, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
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
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cleanup := func() {
		if sqlDB, err := db.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = appLogger.Sync()
	}
	return cfg, appLogger, db.DB, cleanup, nil
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, db *gorm.DB) error) error {
	cfg, appLogger, db, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(cmd.Context(), cfg, appLogger, db)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	rootCmd := &cobra.Command{Use: "scheduling-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-scheduler.yaml", "Path to the configuration file")

	historyCmd.Flags().StringVar(&historyJob, "job", "", "Only executions of this job")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of executions")

	rootCmd.AddCommand(serveCmd, jobsCmd, historyCmd, pauseCmd, resumeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing scheduling-service CLI: %s\n", err)
		os.Exit(1)
	}
}
