package repository

import (
	"context"
	"fmt"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsItemRepository defines the interface for interacting with news data.
type NewsItemRepository interface {
	ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error)
	CreateIgnoreConflict(ctx context.Context, item *entity.NewsItem, securityIDs []uint) (bool, error)
	FindPendingSentiment(ctx context.Context, limit int) ([]dto.PendingSentiment, error)
}

// NewNewsItemRepository creates a new instance of NewsItemRepository.
func NewNewsItemRepository(db *gorm.DB) NewsItemRepository {
	return &newsItemRepository{db: db}
}

type newsItemRepository struct {
	db *gorm.DB
}

// ExistingHashes returns the subset of hashes already stored.
func (r *newsItemRepository) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(hashes) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&entity.NewsItem{}).
		Where("content_hash IN ?", hashes).
		Pluck("content_hash", &found).Error; err != nil {
		return nil, err
	}
	for _, h := range found {
		existing[h] = true
	}
	return existing, nil
}

// CreateIgnoreConflict inserts the news item and its security associations in
// one transaction. It returns false when an item with the same hash or URL
// already exists.
func (r *newsItemRepository) CreateIgnoreConflict(ctx context.Context, item *entity.NewsItem, securityIDs []uint) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item.Securities = nil
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		if len(securityIDs) == 0 {
			return nil
		}
		links := make([]entity.NewsSecurity, 0, len(securityIDs))
		for _, id := range securityIDs {
			links = append(links, entity.NewsSecurity{NewsItemID: item.ID, SecurityID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("insert news_securities error: %w", err)
		}
		item.Securities = links
		return nil
	})
	return inserted, err
}

// FindPendingSentiment lists news/security pairs that have no sentiment
// observation yet, newest news first.
func (r *newsItemRepository) FindPendingSentiment(ctx context.Context, limit int) ([]dto.PendingSentiment, error) {
	var pending []dto.PendingSentiment
	err := r.db.WithContext(ctx).
		Table("news_securities AS ns").
		Select("ns.news_item_id, ns.security_id, s.symbol, n.title, n.summary").
		Joins("JOIN news_items AS n ON n.id = ns.news_item_id").
		Joins("JOIN securities AS s ON s.id = ns.security_id AND s.deleted_at IS NULL").
		Joins("LEFT JOIN sentiment_observations AS so ON so.news_item_id = ns.news_item_id AND so.security_id = ns.security_id").
		Where("so.id IS NULL").
		Order("n.published_at DESC").Order("ns.id").
		Limit(limit).
		Scan(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}
