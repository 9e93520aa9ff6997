// Package storetest holds the behaviour every Backend implementation must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	gk "github.com/panyam/grovekeep"
)

// Run exercises a fresh backend from newBackend in each subtest
func Run(t *testing.T, newBackend func(t *testing.T) gk.Backend) {
	t.Helper()

	t.Run("LoadMissing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Load(context.Background(), "nothing-here")
		assert.ErrorIs(t, err, gk.ErrNotFound)
	})

	t.Run("SaveLoad", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Save(ctx, gk.CollectionUsers, []byte(`[{"id":"u1"}]`)))

		got, err := b.Load(ctx, gk.CollectionUsers)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"u1"}]`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Save(ctx, gk.CollectionSessions, []byte(`[1]`)))
		require.NoError(t, b.Save(ctx, gk.CollectionSessions, []byte(`[2]`)))

		got, err := b.Load(ctx, gk.CollectionSessions)
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		key := gk.UserDataKey("u1")
		require.NoError(t, b.Save(ctx, key, []byte(`{}`)))
		require.NoError(t, b.Delete(ctx, key))

		_, err := b.Load(ctx, key)
		assert.ErrorIs(t, err, gk.ErrNotFound)
		assert.NoError(t, b.Delete(ctx, key), "deleting a missing key")
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		require.NoError(t, b.Save(ctx, gk.UserDataKey("a"), []byte(`"a"`)))
		require.NoError(t, b.Save(ctx, gk.UserDataKey("b"), []byte(`"b"`)))
		require.NoError(t, b.Delete(ctx, gk.UserDataKey("a")))

		got, err := b.Load(ctx, gk.UserDataKey("b"))
		require.NoError(t, err)
		assert.Equal(t, `"b"`, string(got))
	})

	t.Run("BinaryValues", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		raw := []byte{0x00, 0xff, 0x10, 0x80}
		require.NoError(t, b.Save(ctx, gk.UserDataKey("bin"), raw))

		got, err := b.Load(ctx, gk.UserDataKey("bin"))
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("Keys", func(t *testing.T) {
		b := newBackend(t)
		lister, ok := b.(gk.Lister)
		if !ok {
			t.Skip("backend does not list keys")
		}
		ctx := context.Background()
		require.NoError(t, b.Save(ctx, gk.CollectionUsers, []byte(`[]`)))
		require.NoError(t, b.Save(ctx, gk.UserDataKey("u1"), []byte(`{}`)))

		keys, err := lister.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{gk.CollectionUsers, gk.UserDataKey("u1")}, keys)
	})

	t.Run("AuthRoundTrip", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		auth, err := gk.New(b, gk.Config{}, gk.WithHasher(&gk.BcryptHasher{Cost: bcrypt.MinCost}), gk.WithNotifier(gk.NopNotifier{}))
		require.NoError(t, err)

		id, err := auth.Register(ctx, gk.RegisterRequest{Email: "ada@gmail.com", Password: "Str0ng!Pass"})
		require.NoError(t, err)

		res, err := auth.Login(ctx, "ada@gmail.com", "Str0ng!Pass")
		require.NoError(t, err)
		token := res.Session.Token

		require.NoError(t, auth.SaveUserData(ctx, token, id, json.RawMessage(`{"trees":3}`)))
		data, err := auth.UserData(ctx, token, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"trees":3}`, string(data))

		require.NoError(t, auth.Logout(ctx, token))
		assert.False(t, auth.HasAccess(ctx, token, id))
	})
}
