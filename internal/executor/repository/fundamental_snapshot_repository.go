package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveOutcome reports what SaveWithSecurity changed.
type SaveOutcome struct {
	SecurityCreated  bool
	SecurityUpdated  bool
	SnapshotInserted bool
}

// FundamentalSnapshotRepository defines the interface for fundamental snapshot data operations.
type FundamentalSnapshotRepository interface {
	SaveWithSecurity(ctx context.Context, record *dto.FundamentalRecord) (SaveOutcome, error)
	FindLatest(ctx context.Context, securityID uint) (*entity.FundamentalSnapshot, error)
}

// NewFundamentalSnapshotRepository creates a new GORM-based fundamental snapshot repository.
func NewFundamentalSnapshotRepository(db *gorm.DB) FundamentalSnapshotRepository {
	return &fundamentalSnapshotRepository{db: db}
}

type fundamentalSnapshotRepository struct {
	db *gorm.DB
}

// SaveWithSecurity creates the security when it is missing, refreshes its
// descriptive attributes, and inserts the snapshot unless one already exists
// for the same security and day.
func (r *fundamentalSnapshotRepository) SaveWithSecurity(ctx context.Context, record *dto.FundamentalRecord) (SaveOutcome, error) {
	var outcome SaveOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var security entity.Security
		err := tx.Where("symbol = ?", record.Symbol).First(&security).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			security = entity.Security{
				Symbol:    record.Symbol,
				Name:      firstNonEmpty(record.Name, record.Symbol),
				Exchange:  common.DefaultExchange,
				Sector:    record.Sector,
				Industry:  record.Industry,
				MarketCap: record.MarketCap,
				IsActive:  true,
			}
			if err := tx.Create(&security).Error; err != nil {
				return fmt.Errorf("create security %s: %w", record.Symbol, err)
			}
			outcome.SecurityCreated = true
		case err != nil:
			return fmt.Errorf("find security %s: %w", record.Symbol, err)
		default:
			updates := attributeUpdates(&security, record)
			if len(updates) > 0 {
				if err := tx.Model(&security).Updates(updates).Error; err != nil {
					return fmt.Errorf("update security %s: %w", record.Symbol, err)
				}
				outcome.SecurityUpdated = true
			}
		}

		snapshot := &entity.FundamentalSnapshot{
			SecurityID:      security.ID,
			DataDate:        record.DataDate,
			PERatio:         record.PERatio,
			PBRatio:         record.PBRatio,
			PSRatio:         record.PSRatio,
			DividendYield:   record.DividendYield,
			ROE:             record.ROE,
			ROA:             record.ROA,
			OperatingMargin: record.OperatingMargin,
			NetMargin:       record.NetMargin,
			DebtToEquity:    record.DebtToEquity,
			CurrentRatio:    record.CurrentRatio,
			QuickRatio:      record.QuickRatio,
			RevenueGrowth:   record.RevenueGrowth,
			EarningsGrowth:  record.EarningsGrowth,
			CurrentPrice:    record.CurrentPrice,
			Week52High:      record.Week52High,
			Week52Low:       record.Week52Low,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "security_id"}, {Name: "data_date"}},
			DoNothing: true,
		}).Create(snapshot)
		if res.Error != nil {
			return fmt.Errorf("insert snapshot %s: %w", record.Symbol, res.Error)
		}
		outcome.SnapshotInserted = res.RowsAffected > 0
		return nil
	})

	return outcome, err
}

// FindLatest returns the snapshot with the greatest data date, or nil when
// the security has none.
func (r *fundamentalSnapshotRepository) FindLatest(ctx context.Context, securityID uint) (*entity.FundamentalSnapshot, error) {
	var snapshot entity.FundamentalSnapshot
	err := r.db.WithContext(ctx).
		Where("security_id = ?", securityID).
		Order("data_date DESC").Order("id DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func attributeUpdates(security *entity.Security, record *dto.FundamentalRecord) map[string]interface{} {
	updates := map[string]interface{}{}
	if record.Name != "" && record.Name != security.Name {
		updates["name"] = record.Name
	}
	if record.Sector != "" && record.Sector != security.Sector {
		updates["sector"] = record.Sector
	}
	if record.Industry != "" && record.Industry != security.Industry {
		updates["industry"] = record.Industry
	}
	if record.MarketCap != nil && (security.MarketCap == nil || *security.MarketCap != *record.MarketCap) {
		updates["market_cap"] = *record.MarketCap
	}
	return updates
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
