package entity

import (
	"time"

	"github.com/lib/pq"
)

// NewsItem represents a deduplicated news article.
type NewsItem struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Content        string         `json:"content"`
	Summary        string         `json:"summary"`
	URL            string         `gorm:"column:url;uniqueIndex;not null" json:"url"`
	Source         string         `json:"source"`
	Author         string         `json:"author"`
	PublishedAt    time.Time      `gorm:"index" json:"published_at"`
	ContentHash    string         `gorm:"uniqueIndex;not null" json:"content_hash"`
	MatchedQueries pq.StringArray `gorm:"type:text[]" json:"matched_queries"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	Securities     []NewsSecurity `gorm:"foreignKey:NewsItemID" json:"securities,omitempty"`
}

func (NewsItem) TableName() string {
	return "news_items"
}

// NewsSecurity associates a news item with a security it is relevant to.
type NewsSecurity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NewsItemID uint      `gorm:"not null;uniqueIndex:uq_news_security" json:"news_item_id"`
	SecurityID uint      `gorm:"not null;uniqueIndex:uq_news_security" json:"security_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (NewsSecurity) TableName() string {
	return "news_securities"
}
