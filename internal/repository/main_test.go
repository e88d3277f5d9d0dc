package repository

import (
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database on a single connection, so
// concurrent transactions run one after another.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
		NowFunc:        utils.TimeNow,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Company{},
		&model.ForecastBatch{},
		&model.ForecastPoint{},
		&model.Review{},
		&model.Job{},
		&model.TaskSchedule{},
		&model.TaskExecutionHistory{},
	))
	return db
}

func seedOwner(t *testing.T, db *gorm.DB) (*model.Company, *model.User) {
	t.Helper()
	company := &model.Company{Symbol: "AAPL", Name: "Apple Inc."}
	require.NoError(t, db.Create(company).Error)
	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return company, user
}
