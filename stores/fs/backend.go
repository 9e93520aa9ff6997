// Package fs provides a Backend that keeps each key in its own file under a
// root directory. Writes go to a temp file that is renamed into place, so a
// crash never leaves a half-written collection behind.
package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gk "github.com/panyam/grovekeep"
)

const fileSuffix = ".gk"

// Backend stores files under StoragePath
type Backend struct {
	StoragePath string
}

// NewBackend creates the storage directory if needed
func NewBackend(storagePath string) (*Backend, error) {
	if err := os.MkdirAll(storagePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Backend{StoragePath: storagePath}, nil
}

func (b *Backend) pathFor(key string) string {
	return filepath.Join(b.StoragePath, url.PathEscape(key)+fileSuffix)
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gk.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *Backend) Save(ctx context.Context, key string, data []byte) error {
	return writeAtomicFile(b.pathFor(key), data)
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.pathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys lists the keys of every stored file
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.StoragePath)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileSuffix)
		if e.IsDir() || !ok {
			continue
		}
		key, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// writeAtomicFile writes data to a file atomically by writing to a temp file first
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
