//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
)

// KindCollection is the Datastore kind holding every backend key
const KindCollection = "Collection"

// CollectionEntity is the Datastore entity for one backend key
type CollectionEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Data      []byte         `datastore:"data,noindex"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}
