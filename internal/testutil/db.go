// Package testutil provides helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"golang-stock-screener/internal/entity"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB opens an isolated in-memory database with every entity migrated.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.Security{},
		&entity.FundamentalSnapshot{},
		&entity.NewsItem{},
		&entity.NewsSecurity{},
		&entity.SentimentObservation{},
		&entity.CompositeScore{},
		&entity.IngestionAudit{},
		&entity.Job{},
		&entity.TaskSchedule{},
		&entity.TaskExecutionHistory{},
	))
	return db
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CreateSecurity inserts an active security.
func CreateSecurity(t *testing.T, db *gorm.DB, symbol, sector string) *entity.Security {
	t.Helper()
	sec := &entity.Security{Symbol: symbol, Name: symbol + " Ltd", Exchange: "NSE", Sector: sector, IsActive: true}
	require.NoError(t, db.Create(sec).Error)
	return sec
}
