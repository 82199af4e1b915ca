package repository

import (
	"context"
	"errors"

	"golang-stock-screener/internal/entity"

	"gorm.io/gorm"
)

// SecurityRepository defines read access to the security catalog.
type SecurityRepository interface {
	FindActive(ctx context.Context) ([]entity.Security, error)
	FindBySymbols(ctx context.Context, symbols []string) ([]entity.Security, error)
	FindBySymbol(ctx context.Context, symbol string) (*entity.Security, error)
	FindByID(ctx context.Context, id uint) (*entity.Security, error)
}

// NewSecurityRepository creates a new GORM-based security repository.
func NewSecurityRepository(db *gorm.DB) SecurityRepository {
	return &securityRepository{db: db}
}

type securityRepository struct {
	db *gorm.DB
}

// FindActive returns active securities ordered by id, which is the
// iteration order used when ranking.
func (r *securityRepository) FindActive(ctx context.Context) ([]entity.Security, error) {
	var securities []entity.Security
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}

func (r *securityRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Security, error) {
	var securities []entity.Security
	if len(symbols) == 0 {
		return securities, nil
	}
	if err := r.db.WithContext(ctx).Where("symbol IN ?", symbols).Order("id").Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}

// FindBySymbol returns nil when the symbol is unknown.
func (r *securityRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.Security, error) {
	var security entity.Security
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&security).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &security, nil
}

// FindByID returns nil when the security does not exist.
func (r *securityRepository) FindByID(ctx context.Context, id uint) (*entity.Security, error) {
	var security entity.Security
	err := r.db.WithContext(ctx).First(&security, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &security, nil
}
