package kv

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func TestRedisGetMissingKey(t *testing.T) {
	store := newTestRedis(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSetGetDelete(t *testing.T) {
	store := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUpdateCreatesAbsentKey(t *testing.T) {
	store := newTestRedis(t)
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

func TestRedisUpdateTransformsExistingValue(t *testing.T) {
	store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "counter", []byte("41")))

	err := store.Update(ctx, "counter", func(old []byte) ([]byte, error) {
		n, err := strconv.Atoi(string(old))
		if err != nil {
			return nil, err
		}
		return []byte(strconv.Itoa(n + 1)), nil
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "42", string(got))
}

func TestRedisUpdatePropagatesTransformError(t *testing.T) {
	store := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("keep")))

	wantErr := assert.AnError
	err := store.Update(ctx, "k", func([]byte) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), got)
}

func TestConnectRedisPlainAddr(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := ConnectRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestConnectRedisURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
}

func TestConnectRedisUnreachable(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
