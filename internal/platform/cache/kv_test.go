package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_Take(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	got, err := kv.Take(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = kv.Take(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "old", "v", time.Minute))
	now = now.Add(time.Minute)
	_, err = kv.Take(ctx, "old")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_TakeConcurrent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "k", "v", 0))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := kv.Take(ctx, "k"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("http://not-redis")
	assert.Error(t, err)

	c, err := NewRedisClient("redis://localhost:6379/1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Options().DB)
	c.Close()
}
