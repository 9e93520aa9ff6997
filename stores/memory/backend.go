// Package memory provides an in-process Backend. Data is lost when the process exits.
package memory

import (
	"context"
	"sync"

	gk "github.com/panyam/grovekeep"
)

// Backend keeps every key in a map
type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewBackend() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, gk.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *Backend) Save(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Keys returns every stored key, in no particular order
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys, nil
}
