//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gk "github.com/panyam/grovekeep"
)

// AutoMigrate runs database migrations for the collections table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CollectionModel{})
}

// Backend implements grovekeep.Backend using GORM
type Backend struct {
	db *gorm.DB
}

func NewBackend(db *gorm.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	var model CollectionModel
	err := b.db.WithContext(ctx).First(&model, "name = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gk.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.Data, nil
}

func (b *Backend) Save(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	model := &CollectionModel{Name: key, Data: data, UpdatedAt: time.Now()}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(model).Error
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Delete(&CollectionModel{}, "name = ?", key).Error
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.db.WithContext(ctx).Model(&CollectionModel{}).Order("name").Pluck("name", &keys).Error
	return keys, err
}
