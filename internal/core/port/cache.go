package port

import (
	"context"
	"time"
)

// EphemeralStore is the TTL-aware key-value cache holding OTP codes, counters and flags.
// Each call is atomic on its own; sequences of calls are not.
type EphemeralStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// TTL reports the remaining lifetime of key and whether it exists.
	// A live key without expiry reports a zero duration.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	// IncrWithTTL increments key and applies ttl only when the increment created it.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
