package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/checkpointgo/checkpoint"
)

func TestBackend_PutIfAbsent(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	require.NoError(t, b.PutIfAbsent(ctx, "k1", []byte("v1")))

	err := b.PutIfAbsent(ctx, "k1", []byte("v2"))
	assert.ErrorIs(t, err, checkpoint.ErrConflict)

	// The original value survives the losing put.
	value, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)
}

func TestBackend_GetMissing(t *testing.T) {
	t.Parallel()

	b := New()

	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestBackend_Scan(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	for _, key := range []string{"a/3", "a/1", "b/1", "a/2"} {
		require.NoError(t, b.PutIfAbsent(ctx, key, []byte(key)))
	}

	t.Run("prefix filters and orders", func(t *testing.T) {
		entries, err := b.Scan(ctx, "a/", "", 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "a/1", entries[0].Key)
		assert.Equal(t, "a/2", entries[1].Key)
		assert.Equal(t, "a/3", entries[2].Key)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		entries, err := b.Scan(ctx, "a/", "", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a/1", entries[0].Key)
	})

	t.Run("cursor is exclusive", func(t *testing.T) {
		entries, err := b.Scan(ctx, "a/", "a/1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a/2", entries[0].Key)
	})

	t.Run("cursor past the prefix yields nothing", func(t *testing.T) {
		entries, err := b.Scan(ctx, "a/", "a/9", 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unknown prefix yields nothing", func(t *testing.T) {
		entries, err := b.Scan(ctx, "z/", "", 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestBackend_Delete(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	require.NoError(t, b.PutIfAbsent(ctx, "k1", []byte("v1")))
	require.NoError(t, b.Delete(ctx, "k1"))

	_, err := b.Get(ctx, "k1")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	// Idempotent.
	require.NoError(t, b.Delete(ctx, "k1"))
	assert.Equal(t, 0, b.Len())
}

func TestBackend_ValueIsolation(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	original := []byte("value")
	require.NoError(t, b.PutIfAbsent(ctx, "k", original))
	original[0] = 'X'

	stored, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), stored)

	// Mutating the returned slice must not corrupt the store either.
	stored[0] = 'Y'
	again, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}

func TestBackend_ConcurrentPutIfAbsent(t *testing.T) {
	t.Parallel()

	b := New()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.PutIfAbsent(ctx, "contested", []byte(fmt.Sprintf("%d", i)))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, b.Len())
}
