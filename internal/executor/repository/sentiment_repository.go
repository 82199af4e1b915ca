package repository

import (
	"context"
	"time"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SentimentRepository defines the interface for sentiment observation data operations.
type SentimentRepository interface {
	Create(ctx context.Context, observation *entity.SentimentObservation) (bool, error)
	FindBySecurityBetween(ctx context.Context, securityID uint, from, to time.Time) ([]entity.SentimentObservation, error)
}

// NewSentimentRepository creates a new GORM-based sentiment repository.
func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

type sentimentRepository struct {
	db *gorm.DB
}

// Create stores an observation once per news/security pair. It returns false
// when the pair was already classified.
func (r *sentimentRepository) Create(ctx context.Context, observation *entity.SentimentObservation) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "news_item_id"}, {Name: "security_id"}},
		DoNothing: true,
	}).Create(observation)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindBySecurityBetween returns observations created in [from, to].
func (r *sentimentRepository) FindBySecurityBetween(ctx context.Context, securityID uint, from, to time.Time) ([]entity.SentimentObservation, error) {
	var observations []entity.SentimentObservation
	err := r.db.WithContext(ctx).
		Where("security_id = ? AND created_at >= ? AND created_at <= ?", securityID, from, to).
		Order("created_at").Order("id").
		Find(&observations).Error
	if err != nil {
		return nil, err
	}
	return observations, nil
}
