package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/storetest"
)

// setupTestRedis creates a miniredis instance for testing.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

func TestBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) gk.Backend {
		client, _ := setupTestRedis(t)
		return NewBackend(client, "gk")
	})
}

func TestPrefixIsolation(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	a := NewBackend(client, "tenant-a")
	b := NewBackend(client, "tenant-b")

	require.NoError(t, a.Save(ctx, gk.CollectionUsers, []byte(`[]`)))
	assert.True(t, mr.Exists("tenant-a:users"))

	_, err := b.Load(ctx, gk.CollectionUsers)
	assert.ErrorIs(t, err, gk.ErrNotFound)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoadConnectionError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	backend := NewBackend(client, "gk")
	mr.Close()

	_, err = backend.Load(context.Background(), gk.CollectionUsers)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gk.ErrNotFound)
}
