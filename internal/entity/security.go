package entity

import (
	"time"

	"gorm.io/gorm"
)

// Security is a listed equity tracked by the screener.
type Security struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Symbol    string         `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string         `gorm:"not null" json:"name"`
	Exchange  string         `gorm:"not null;default:'NSE'" json:"exchange"`
	Sector    string         `gorm:"index" json:"sector"`
	Industry  string         `json:"industry"`
	MarketCap *float64       `json:"market_cap,omitempty"`
	IsActive  bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Security) TableName() string {
	return "securities"
}
