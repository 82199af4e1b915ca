package entity

import "time"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Valid reports whether l is one of the three known labels.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// SentimentObservation is the classification of one news item for one
// security. Created once per pair and never mutated.
type SentimentObservation struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	NewsItemID    uint           `gorm:"not null;uniqueIndex:uq_sentiment_news_security" json:"news_item_id"`
	SecurityID    uint           `gorm:"not null;uniqueIndex:uq_sentiment_news_security;index:idx_sentiment_security_created" json:"security_id"`
	Label         SentimentLabel `gorm:"type:varchar(16);not null" json:"label"`
	Score         float64        `gorm:"not null" json:"score"`
	Confidence    float64        `gorm:"not null" json:"confidence"`
	Model         string         `gorm:"not null" json:"model"`
	LowConfidence bool           `gorm:"not null;default:false" json:"low_confidence"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_sentiment_security_created" json:"created_at"`
}

func (SentimentObservation) TableName() string {
	return "sentiment_observations"
}
