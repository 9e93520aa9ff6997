//go:build !wasm
// +build !wasm

package gorm

import "time"

// CollectionModel is the GORM model for one backend key, stored in Name
// ("key" is reserved in MySQL)
type CollectionModel struct {
	Name      string    `gorm:"primaryKey;size:255"`
	Data      []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CollectionModel) TableName() string {
	return "collections"
}
