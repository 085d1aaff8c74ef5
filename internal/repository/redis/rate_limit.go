package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	uuid "github.com/google/uuid"
	red "github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "auth:rate-limit"

// RateLimitRepository keeps per-identifier request timestamps in sorted sets
// for sliding-window limiting.
type RateLimitRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewRateLimitRepository constructs a repository. ttl bounds how long an idle set survives.
func NewRateLimitRepository(client *red.Client, prefix string, ttl time.Duration) *RateLimitRepository {
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, prefix: prefix, ttl: ttl}
}

// RecordAttempt adds an attempt at the given time and refreshes the set expiry.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	member := red.Z{
		Score:  float64(at.UnixNano()),
		Member: strconv.FormatInt(at.UnixNano(), 10) + "-" + uuid.NewString(),
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, member)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}
	return nil
}

// CountAttempts returns the attempts inside the window ending at reference.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	count, err := r.client.ZCount(ctx, r.key(identifier), score(reference.Add(-window)), score(reference)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// TrimWindow drops attempts older than the window.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", "("+score(reference.Add(-window))).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// OldestAttempt returns the earliest attempt still inside the window.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	entries, err := r.client.ZRangeByScoreWithScores(ctx, r.key(identifier), &red.ZRangeBy{
		Min:   score(reference.Add(-window)),
		Max:   score(reference),
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(0, int64(entries[0].Score)), true, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	return r.prefix + ":" + identifier
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}
