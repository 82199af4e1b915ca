package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"

	"gorm.io/gorm"
)

// CompositeScoreRepository defines the interface for composite score data operations.
type CompositeScoreRepository interface {
	Create(ctx context.Context, score *entity.CompositeScore) error
	// CreateBatch stores a whole ranking run in one transaction, so readers
	// never see part of it. A row that fails is rolled back to its own
	// savepoint and reported by index; the other rows still commit. The
	// returned error is set only when the transaction itself fails, in which
	// case nothing was stored.
	CreateBatch(ctx context.Context, scores []*entity.CompositeScore) (map[int]error, error)
	LatestScoreDate(ctx context.Context) (*time.Time, error)
	FindLatestBySecurity(ctx context.Context, securityID uint) (*entity.CompositeScore, error)
	Screen(ctx context.Context, filter dto.ScreeningFilter) ([]dto.RankedSecurity, error)
}

// NewCompositeScoreRepository creates a new GORM-based composite score repository.
func NewCompositeScoreRepository(db *gorm.DB) CompositeScoreRepository {
	return &compositeScoreRepository{db: db}
}

type compositeScoreRepository struct {
	db *gorm.DB
}

func (r *compositeScoreRepository) Create(ctx context.Context, score *entity.CompositeScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

func (r *compositeScoreRepository) CreateBatch(ctx context.Context, scores []*entity.CompositeScore) (map[int]error, error) {
	var failures map[int]error

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		failures = make(map[int]error)
		for i, score := range scores {
			if err := tx.Transaction(func(row *gorm.DB) error {
				return row.Create(score).Error
			}); err != nil {
				failures[i] = err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store ranking run: %w", err)
	}
	return failures, nil
}

// LatestScoreDate returns the score date of the most recent ranking run, or
// nil when nothing has been scored yet.
func (r *compositeScoreRepository) LatestScoreDate(ctx context.Context) (*time.Time, error) {
	var latest entity.CompositeScore
	err := r.db.WithContext(ctx).Select("score_date").Order("score_date DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &latest.ScoreDate, nil
}

func (r *compositeScoreRepository) FindLatestBySecurity(ctx context.Context, securityID uint) (*entity.CompositeScore, error) {
	var score entity.CompositeScore
	err := r.db.WithContext(ctx).
		Where("security_id = ?", securityID).
		Order("score_date DESC").
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// Screen selects rows of the latest ranking run for active securities,
// filtered and ordered by the requested score descending.
func (r *compositeScoreRepository) Screen(ctx context.Context, filter dto.ScreeningFilter) ([]dto.RankedSecurity, error) {
	var ranked []dto.RankedSecurity

	latest, err := r.LatestScoreDate(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return ranked, nil
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = dto.ScoreFieldComposite
	}
	if !sortBy.Valid() {
		return nil, fmt.Errorf("unsupported sort field %q", sortBy)
	}

	q := r.db.WithContext(ctx).
		Table("composite_scores AS cs").
		Select("cs.security_id, s.symbol, s.name, s.sector, cs.fundamental_score, cs.sentiment_score, cs.composite_score, cs.rank, cs.score_date").
		Joins("JOIN securities AS s ON s.id = cs.security_id").
		Where("cs.score_date = ?", *latest).
		Where("s.is_active = ? AND s.deleted_at IS NULL", true)

	if len(filter.Sectors) > 0 {
		q = q.Where("s.sector IN ?", filter.Sectors)
	}
	if filter.MinMarketCap != nil {
		q = q.Where("s.market_cap >= ?", *filter.MinMarketCap)
	}
	if filter.MaxMarketCap != nil {
		q = q.Where("s.market_cap <= ?", *filter.MaxMarketCap)
	}
	if filter.MinCompositeScore != nil {
		q = q.Where("cs.composite_score >= ?", *filter.MinCompositeScore)
	}
	if filter.MinFundamentalScore != nil {
		q = q.Where("cs.fundamental_score >= ?", *filter.MinFundamentalScore)
	}
	if filter.MinSentimentScore != nil {
		q = q.Where("cs.sentiment_score >= ?", *filter.MinSentimentScore)
	}

	q = q.Order(fmt.Sprintf("cs.%s DESC", sortBy)).Order("cs.rank ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Scan(&ranked).Error; err != nil {
		return nil, err
	}
	return ranked, nil
}
