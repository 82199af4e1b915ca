package service

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"github.com/go-playground/validator/v10"
)

const fundamentalSource = "market_data"

// FundamentalIngestionService loads fundamental snapshots for the symbol universe.
type FundamentalIngestionService interface {
	// IngestAll ingests the tracked symbols plus every active security.
	IngestAll(ctx context.Context) (*dto.IngestionResult, error)
	// IngestSymbols ingests only the given symbols.
	IngestSymbols(ctx context.Context, symbols []string) (*dto.IngestionResult, error)
}

type fundamentalIngestionService struct {
	cfg          *config.Config
	logger       *logger.Logger
	runner       *IngestionRunner
	securityRepo repository.SecurityRepository
	snapshotRepo repository.FundamentalSnapshotRepository
	marketData   repository.MarketDataRepository
	validate     *validator.Validate
}

// NewFundamentalIngestionService creates a new FundamentalIngestionService.
func NewFundamentalIngestionService(
	cfg *config.Config,
	log *logger.Logger,
	runner *IngestionRunner,
	securityRepo repository.SecurityRepository,
	snapshotRepo repository.FundamentalSnapshotRepository,
	marketData repository.MarketDataRepository,
) FundamentalIngestionService {
	return &fundamentalIngestionService{
		cfg:          cfg,
		logger:       log,
		runner:       runner,
		securityRepo: securityRepo,
		snapshotRepo: snapshotRepo,
		marketData:   marketData,
		validate:     validator.New(),
	}
}

func (s *fundamentalIngestionService) IngestAll(ctx context.Context) (*dto.IngestionResult, error) {
	return s.run(ctx, func(ctx context.Context) ([]string, error) {
		return symbolUniverse(ctx, s.securityRepo, s.cfg.Ingestion.TrackedSymbols)
	})
}

func (s *fundamentalIngestionService) IngestSymbols(ctx context.Context, symbols []string) (*dto.IngestionResult, error) {
	symbols = utils.UniqueUpper(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to ingest")
	}
	return s.run(ctx, func(context.Context) ([]string, error) { return symbols, nil })
}

func (s *fundamentalIngestionService) run(ctx context.Context, universe func(context.Context) ([]string, error)) (*dto.IngestionResult, error) {
	return RunIngestion(ctx, s.runner, IngestionJob[[]dto.FundamentalRecord]{
		Type:   entity.IngestionTypeFundamentals,
		Source: fundamentalSource,
		Fetch: func(ctx context.Context) ([]dto.FundamentalRecord, error) {
			symbols, err := universe(ctx)
			if err != nil {
				return nil, err
			}
			return s.fetch(ctx, symbols)
		},
		Process: s.process,
	})
}

// fetch collects one record per symbol. Symbols the source does not know and
// records with non-finite values are left out; the fetch fails only when
// every symbol failed.
func (s *fundamentalIngestionService) fetch(ctx context.Context, symbols []string) ([]dto.FundamentalRecord, error) {
	records := make([]dto.FundamentalRecord, 0, len(symbols))
	var failures int
	var lastErr error

	for _, symbol := range symbols {
		if !utils.ShouldContinue(ctx, s.logger) {
			return nil, ctx.Err()
		}

		record, err := s.marketData.FetchFundamentals(ctx, symbol)
		if err != nil {
			failures++
			lastErr = err
			s.logger.WarnContext(ctx, "Failed to fetch fundamentals",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			continue
		}
		if record == nil {
			s.logger.DebugContext(ctx, "No fundamentals for symbol", logger.StringField("symbol", symbol))
			continue
		}
		if err := checkFinite(record); err != nil {
			s.logger.WarnContext(ctx, "Dropping fundamentals with non-finite values",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			continue
		}
		records = append(records, *record)
	}

	if len(symbols) > 0 && failures == len(symbols) {
		return nil, fmt.Errorf("all %d symbols failed: %w", failures, lastErr)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })
	return records, nil
}

// process stores the bundle. Invalid records are skipped; a storage error
// aborts the run so it can be retried.
func (s *fundamentalIngestionService) process(ctx context.Context, records []dto.FundamentalRecord) (dto.IngestionCounts, error) {
	counts := dto.IngestionCounts{Fetched: len(records)}

	for i := range records {
		record := &records[i]
		if err := s.validate.Struct(record); err != nil {
			counts.Skipped++
			s.logger.WarnContext(ctx, "Skipping invalid fundamental record",
				logger.StringField("symbol", record.Symbol),
				logger.ErrorField(err))
			continue
		}

		outcome, err := s.snapshotRepo.SaveWithSecurity(ctx, record)
		if err != nil {
			return counts, fmt.Errorf("failed to save %s: %w", record.Symbol, err)
		}
		// each record lands in exactly one bucket
		switch {
		case outcome.SnapshotInserted:
			counts.Inserted++
		case outcome.SecurityCreated || outcome.SecurityUpdated:
			counts.Updated++
		default:
			counts.Skipped++
		}
	}
	return counts, nil
}

// checkFinite rejects NaN and infinite metric values. They cannot be
// fingerprinted and the validator does not detect them.
func checkFinite(record *dto.FundamentalRecord) error {
	v := reflect.ValueOf(record).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f, ok := v.Field(i).Interface().(*float64)
		if !ok || f == nil {
			continue
		}
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			return fmt.Errorf("%s is not a finite number", t.Field(i).Name)
		}
	}
	return nil
}
