//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/storetest"
)

// setupTestDB prepares a file-backed SQLite database for one test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "grovekeep.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, AutoMigrate(db), "failed to migrate table")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) gk.Backend { return NewBackend(setupTestDB(t)) })
}

func TestSaveUpsertsSingleRow(t *testing.T) {
	db := setupTestDB(t)
	b := NewBackend(db)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, gk.CollectionUsers, []byte(`[1]`)))
	require.NoError(t, b.Save(ctx, gk.CollectionUsers, []byte(`[1,2]`)))

	var count int64
	require.NoError(t, db.Model(&CollectionModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var model CollectionModel
	require.NoError(t, db.First(&model, "name = ?", gk.CollectionUsers).Error)
	assert.Equal(t, `[1,2]`, string(model.Data))
	assert.False(t, model.UpdatedAt.IsZero())
}
