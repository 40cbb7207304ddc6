package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"krwx-ledger/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCaller = "0x1000000000000000000000000000000000000001"

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := testCaller + ":req-001"
	value := []byte(`{"operation_id":"abc","operation":"transfer"}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	err = cache.Set(ctx, key, value, 24*time.Hour)
	require.NoError(t, err)

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)

	assert.True(t, s.Exists("idempotency:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := testCaller + ":req-002"

	err := cache.Set(ctx, key, []byte(`{}`), 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_RedisDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis idempotency get")

	err = cache.Set(context.Background(), "k", []byte("v"), time.Minute)
	require.Error(t, err)

	_, err = cache.Reserve(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis idempotency reserve")
}

func TestIdempotencyCache_ReserveOnce(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := testCaller + ":req-003"

	ok, err := cache.Reserve(ctx, key, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Reserve(ctx, key, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must lose")

	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, ports.ErrRequestInFlight)

	// The receipt replaces the marker and blocks further reservations.
	require.NoError(t, cache.Set(ctx, key, []byte(`{"operation":"transfer"}`), time.Hour))
	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"transfer"}`, string(result))

	ok, err = cache.Reserve(ctx, key, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyCache_ConcurrentReserve(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cache.Reserve(ctx, testCaller+":retry-1", 30*time.Second)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestIdempotencyCache_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := testCaller + ":req-004"

	ok, err := cache.Reserve(ctx, key, 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.Release(ctx, key))
	assert.False(t, s.Exists("idempotency:"+key))

	ok, err = cache.Reserve(ctx, key, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be reserved again")

	// Release never removes a stored receipt.
	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), time.Hour))
	require.NoError(t, cache.Release(ctx, key))
	assert.True(t, s.Exists("idempotency:"+key))
}
