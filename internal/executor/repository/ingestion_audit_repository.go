package repository

import (
	"context"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
)

// IngestionAuditRepository defines the interface for the append-only ingestion audit log.
type IngestionAuditRepository interface {
	Create(ctx context.Context, audit *entity.IngestionAudit) error
	ExistsSuccess(ctx context.Context, ingestionType entity.IngestionType, dataHash string) (bool, error)
	FindRecent(ctx context.Context, ingestionType entity.IngestionType, limit int) ([]entity.IngestionAudit, error)
}

// NewIngestionAuditRepository creates a new GORM-based ingestion audit repository.
func NewIngestionAuditRepository(db *gorm.DB) IngestionAuditRepository {
	return &ingestionAuditRepository{db: db}
}

type ingestionAuditRepository struct {
	db *gorm.DB
}

func (r *ingestionAuditRepository) Create(ctx context.Context, audit *entity.IngestionAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// ExistsSuccess reports whether a successful run already ingested dataHash.
func (r *ingestionAuditRepository) ExistsSuccess(ctx context.Context, ingestionType entity.IngestionType, dataHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.IngestionAudit{}).
		Where("ingestion_type = ? AND data_hash = ? AND status = ?", ingestionType, dataHash, entity.IngestionStatusSuccess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindRecent returns the latest audit records of a type, newest first.
func (r *ingestionAuditRepository) FindRecent(ctx context.Context, ingestionType entity.IngestionType, limit int) ([]entity.IngestionAudit, error) {
	var audits []entity.IngestionAudit
	err := r.db.WithContext(ctx).
		Where("ingestion_type = ?", ingestionType).
		Order("started_at DESC").Order("id DESC").
		Limit(limit).
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}
