package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with every storefront table
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every statement sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ProductModel{},
		&models.CouponModel{},
		&models.UserModel{},
		&models.UserAddressModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.OrderStatusModel{},
	))
	return db
}
