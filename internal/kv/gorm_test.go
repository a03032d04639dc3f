package kv

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGorm(t *testing.T) *Gorm {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	return store
}

func TestGormGetMissingKey(t *testing.T) {
	store := newTestGorm(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormSetUpsertsAndGetRoundTrips(t *testing.T) {
	store := newTestGorm(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestGormDelete(t *testing.T) {
	store := newTestGorm(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "k"))
}

func TestGormUpdateCreatesAbsentKey(t *testing.T) {
	store := newTestGorm(t)
	ctx := context.Background()

	err := store.Update(ctx, "k", func(old []byte) ([]byte, error) {
		assert.Nil(t, old)
		return []byte("first"), nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestGormUpdateSequence(t *testing.T) {
	store := newTestGorm(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "counter", []byte("0")))

	for i := 0; i < 10; i++ {
		err := store.Update(ctx, "counter", func(old []byte) ([]byte, error) {
			n, err := strconv.Atoi(string(old))
			if err != nil {
				return nil, err
			}
			return []byte(strconv.Itoa(n + 1)), nil
		})
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "10", string(got))
}

func TestGormUpdatePropagatesTransformError(t *testing.T) {
	store := newTestGorm(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("keep")))

	err := store.Update(ctx, "k", func([]byte) ([]byte, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), got)
}
