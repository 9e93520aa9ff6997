//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based Backend. It supports any database that
// GORM supports (PostgreSQL, MySQL, SQLite, etc.).
//
// # Database Schema
//
// AutoMigrate creates a single table:
//   - collections: one row per key, holding the serialized value
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	_ = gormstore.AutoMigrate(db)
//	auth, _ := grovekeep.New(gormstore.NewBackend(db), grovekeep.Config{})
package gorm
