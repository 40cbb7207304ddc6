package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"krwx-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// inFlight marks a reserved key whose receipt has not been stored yet.
var inFlight = []byte("__in_flight__")

// releaseScript deletes the key only while it still holds the marker, so a
// late Release never removes a stored receipt.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// IdempotencyCache implements ports.IdempotencyCache using Redis. Values are
// receipt JSON keyed by "<caller>:<Idempotency-Key>".
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Reserve claims key with SET NX. The marker expires after ttl so a crashed
// request does not hold the key forever.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, inFlight, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency reserve: %w", err)
	}
	return ok, nil
}

// Get retrieves a cached receipt by idempotency key.
// Returns nil, nil if the key does not exist and ports.ErrRequestInFlight
// while it is only reserved.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	if bytes.Equal(val, inFlight) {
		return nil, ports.ErrRequestInFlight
	}
	return val, nil
}

// Set stores a receipt in the idempotency cache with TTL, replacing any
// reservation.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release removes a reservation. Stored receipts are left alone.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.prefix + key}, inFlight).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}

var _ ports.IdempotencyCache = (*IdempotencyCache)(nil)
