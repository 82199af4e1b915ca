package entity

import (
	"time"

	"gorm.io/datatypes"
)

// CompositeScore is one ranking entry of a scoring run. All entries of a run
// share ScoreDate.
type CompositeScore struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SecurityID       uint           `gorm:"not null;index" json:"security_id"`
	Security         *Security      `gorm:"foreignKey:SecurityID" json:"security,omitempty"`
	FundamentalScore float64        `gorm:"not null" json:"fundamental_score"`
	SentimentScore   float64        `gorm:"not null" json:"sentiment_score"`
	CompositeScore   float64        `gorm:"not null" json:"composite_score"`
	Rank             int            `gorm:"not null" json:"rank"`
	Breakdown        datatypes.JSON `gorm:"type:jsonb" json:"breakdown"`
	ScoreDate        time.Time      `gorm:"not null;index" json:"score_date"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (CompositeScore) TableName() string {
	return "composite_scores"
}
