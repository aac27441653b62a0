// Package testkit provides database fixtures for package tests.
package testkit

import (
	"testing"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that lives for the
// duration of the test. The pool is capped at one connection so every
// query sees the same in-memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// SeedUser inserts an active customer. An empty address leaves it unset.
func SeedUser(t testing.TB, db *gorm.DB, address string) *models.User {
	t.Helper()

	id := uuid.NewString()
	u := &models.User{
		ID:     id,
		Name:   "Customer " + id[:8],
		Email:  id[:8] + "@example.com",
		Active: true,
	}
	if address != "" {
		u.Address = &address
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedMenuItem inserts a menu item priced at price, e.g. "12.50".
func SeedMenuItem(t testing.TB, db *gorm.DB, name, price string) *models.MenuItem {
	t.Helper()

	m := &models.MenuItem{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(m).Error)
	return m
}
