package grovekeep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is returned by a Backend when a key has never been saved or was deleted
var ErrNotFound = errors.New("grovekeep: key not found")

// Backend is the persistence port every store reads and writes through.
// Values are whole serialized collections; there is no partial update.
type Backend interface {
	// Load returns the bytes last saved under key, or ErrNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value stored under key
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
// Maintenance tasks such as orphaned data cleanup require it.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Collection keys
const (
	CollectionUsers       = "users"
	CollectionSessions    = "sessions"
	CollectionSecurityLog = "security_log"

	userDataPrefix = "userdata/"
)

// UserDataKey is the backend key holding the per-user application data record
func UserDataKey(userID string) string {
	return userDataPrefix + userID
}

// userIDFromDataKey is the inverse of UserDataKey
func userIDFromDataKey(key string) (string, bool) {
	return strings.CutPrefix(key, userDataPrefix)
}

// loadCollection reads a JSON array from the backend for read-only callers.
// Missing keys and unreadable or corrupt data all degrade to an empty collection.
func loadCollection[T any](ctx context.Context, backend Backend, key string, logger *slog.Logger) []T {
	items, err := loadCollectionForUpdate[T](ctx, backend, key, logger)
	if err != nil {
		logger.Warn("failed to load collection, treating as empty", "collection", key, "error", err)
		return nil
	}
	return items
}

// loadCollectionForUpdate is the loader for read-modify-write cycles. A missing
// key or corrupt data is still an empty collection, but any other backend error
// is returned so the caller aborts instead of writing a partial view back.
func loadCollectionForUpdate[T any](ctx context.Context, backend Backend, key string, logger *slog.Logger) ([]T, error) {
	data, err := backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("corrupt collection, treating as empty", "collection", key, "error", err)
		return nil, nil
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, backend Backend, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := backend.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
