package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/repository"
)

// incrWithTTL applies the expiry only when INCR created the key, so an active
// window is never extended by later requests.
var incrWithTTL = red.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// StateRepository stores OTP codes, counters and lock flags as plain Redis keys.
// Key names are supplied by the caller verbatim.
type StateRepository struct {
	client *red.Client
}

var _ port.EphemeralStore = (*StateRepository)(nil)

// NewStateRepository constructs a repository backed by client.
func NewStateRepository(client *red.Client) *StateRepository {
	return &StateRepository{client: client}
}

func (r *StateRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, red.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set writes value with ttl. A non-positive ttl stores the key without expiry.
func (r *StateRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *StateRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *StateRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// TTL maps Redis' -2 (missing) and -1 (no expiry) replies onto (found, duration).
func (r *StateRepository) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis pttl: %w", err)
	}
	switch {
	case ttl == -2:
		return 0, false, nil
	case ttl < 0:
		return 0, true, nil
	default:
		return ttl, true, nil
	}
}

func (r *StateRepository) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrWithTTL.Run(ctx, r.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis incr with ttl: %w", err)
	}
	return n, nil
}
