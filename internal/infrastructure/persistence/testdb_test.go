package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maraline/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens an in-memory SQLite database and migrates every
// persistence model. The pool is pinned to one connection so all queries see
// the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.LedgerEntryModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.ProductModel{},
		&models.CategoryModel{},
		&models.WithdrawalModel{},
	))

	return db
}
