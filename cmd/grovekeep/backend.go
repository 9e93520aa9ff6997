package main

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/datastore"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/fs"
	"github.com/panyam/grovekeep/stores/gae"
	gormstore "github.com/panyam/grovekeep/stores/gorm"
	"github.com/panyam/grovekeep/stores/memory"
	redisstore "github.com/panyam/grovekeep/stores/redis"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noopCloser = closerFunc(func() error { return nil })

// openBackend builds the configured Backend. The returned Closer releases its connections.
func openBackend(ctx context.Context, cfg *AppConfig) (gk.Backend, io.Closer, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.NewBackend(), noopCloser, nil

	case BackendFS:
		b, err := fs.NewBackend(cfg.DataDir)
		return b, noopCloser, err

	case BackendSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return gormstore.NewBackend(db), sqlDB, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisstore.NewBackend(client, cfg.RedisPrefix), client, nil

	case BackendDatastore:
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		return gae.NewBackend(client, cfg.DatastoreNamespace), client, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
