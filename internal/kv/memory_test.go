package kv

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissingKey(t *testing.T) {
	mem := NewMemory()

	_, err := mem.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySetGetDelete(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "k", []byte("v1")))

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, mem.Set(ctx, "k", []byte("v2")))
	got, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, mem.Delete(ctx, "k"))
	_, err = mem.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is still fine.
	require.NoError(t, mem.Delete(ctx, "k"))
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "k", []byte("abc")))

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryUpdateSeesNilForAbsentKey(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.Update(ctx, "k", func(old []byte) ([]byte, error) {
		assert.Nil(t, old)
		return []byte("first"), nil
	})
	require.NoError(t, err)

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestMemoryUpdatePropagatesTransformError(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "k", []byte("keep")))

	boom := errors.New("boom")
	err := mem.Update(ctx, "k", func([]byte) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), got)
}

func TestMemoryConcurrentUpdatesLoseNothing(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "counter", []byte("0")))

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := mem.Update(ctx, "counter", func(old []byte) ([]byte, error) {
				n, err := strconv.Atoi(string(old))
				if err != nil {
					return nil, err
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := mem.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(writers), string(got))
}
