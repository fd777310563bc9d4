package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces registry keys.
const DefaultRedisPrefix = "tg:rv:"

const scanBatch = 256

// Redis is a Registry shared through a Redis deployment. Each revoked id is a
// key with a native expiry.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a registry storing keys under prefix. An empty prefix
// selects DefaultRedisPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(tokenID string) string {
	return r.prefix + tokenID
}

// Revoke sets the id key with ttl. Re-revoking refreshes the expiry.
//
//	Performance: 1 Redis SET.
func (r *Redis) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return ErrEmptyTokenID
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := r.client.Set(ctx, r.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the id key exists.
//
//	Performance: 1 Redis EXISTS.
func (r *Redis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Count walks the prefix with SCAN. It is intended for reports, not hot paths.
// SCAN may return a key more than once during a walk; each key counts once.
func (r *Redis) Count(ctx context.Context) (int, error) {
	return countScan(ctx, func(ctx context.Context, cursor uint64) ([]string, uint64, error) {
		return r.client.Scan(ctx, cursor, r.prefix+"*", scanBatch).Result()
	})
}

// scanPage returns one SCAN batch and the next cursor.
type scanPage func(ctx context.Context, cursor uint64) ([]string, uint64, error)

func countScan(ctx context.Context, page scanPage) (int, error) {
	var cursor uint64
	seen := make(map[string]struct{})
	for {
		keys, next, err := page(ctx, cursor)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			return len(seen), nil
		}
	}
}

// Sweep is a no-op; Redis expires keys itself.
func (r *Redis) Sweep(context.Context) (int, error) {
	return 0, nil
}
