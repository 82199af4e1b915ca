package entity

import (
	"database/sql"
	"time"
)

type IngestionType string

const (
	IngestionTypeFundamentals IngestionType = "fundamentals"
	IngestionTypeNews         IngestionType = "news"
)

type IngestionStatus string

const (
	IngestionStatusSuccess IngestionStatus = "success"
	IngestionStatusFailed  IngestionStatus = "failed"
	IngestionStatusSkipped IngestionStatus = "skipped"
)

// IngestionAudit records one ingestion attempt. Append-only.
type IngestionAudit struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RunID           string          `gorm:"type:varchar(36);not null;index" json:"run_id"`
	IngestionType   IngestionType   `gorm:"type:varchar(32);not null;index:idx_ingestion_type_hash_status" json:"ingestion_type"`
	Source          string          `gorm:"not null" json:"source"`
	DataHash        string          `gorm:"type:varchar(64);not null;index:idx_ingestion_type_hash_status" json:"data_hash"`
	Status          IngestionStatus `gorm:"type:varchar(16);not null;index:idx_ingestion_type_hash_status" json:"status"`
	RecordsFetched  int             `gorm:"not null;default:0" json:"records_fetched"`
	RecordsInserted int             `gorm:"not null;default:0" json:"records_inserted"`
	RecordsUpdated  int             `gorm:"not null;default:0" json:"records_updated"`
	RecordsSkipped  int             `gorm:"not null;default:0" json:"records_skipped"`
	StartedAt       time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt     time.Time       `gorm:"not null" json:"completed_at"`
	DurationMs      int64           `gorm:"not null;default:0" json:"duration_ms"`
	ErrorMessage    sql.NullString  `json:"error_message"`
}

func (IngestionAudit) TableName() string {
	return "ingestion_audits"
}
