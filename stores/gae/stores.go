//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	gk "github.com/panyam/grovekeep"
)

// Backend implements grovekeep.Backend using Google Cloud Datastore
type Backend struct {
	client    *datastore.Client
	namespace string
}

// NewBackend creates a Datastore-backed Backend scoped to namespace
func NewBackend(client *datastore.Client, namespace string) *Backend {
	return &Backend{client: client, namespace: namespace}
}

func (b *Backend) namespacedKey(name string) *datastore.Key {
	key := datastore.NameKey(KindCollection, name, nil)
	key.Namespace = b.namespace
	return key
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	var entity CollectionEntity
	if err := b.client.Get(ctx, b.namespacedKey(key), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, gk.ErrNotFound
		}
		return nil, err
	}
	return entity.Data, nil
}

func (b *Backend) Save(ctx context.Context, key string, data []byte) error {
	dsKey := b.namespacedKey(key)
	entity := &CollectionEntity{Key: dsKey, Data: data, UpdatedAt: time.Now()}
	_, err := b.client.Put(ctx, dsKey, entity)
	return err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.client.Delete(ctx, b.namespacedKey(key))
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil
	}
	return err
}

// Keys lists the name of every Collection entity in the namespace
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	query := datastore.NewQuery(KindCollection).Namespace(b.namespace).KeysOnly()
	it := b.client.Run(ctx, query)

	var keys []string
	for {
		key, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, key.Name)
	}
	return keys, nil
}
