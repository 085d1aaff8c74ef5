package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/marketplace-auth/internal/infra/logger"
)

const rateLimitDetail = "Too many requests, please try again later!"

// RateLimitStore persists request timestamps per key for a sliding window.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// KeyFunc extracts the value requests are grouped by. ok=false skips limiting.
type KeyFunc func(*gin.Context) (key string, ok bool)

// RateLimitPolicy caps requests per key within a sliding window.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

// RateLimiter enforces RateLimitPolicy values against a RateLimitStore.
// Store failures let the request through.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

type decision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func NewRateLimiter(store RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: log, now: time.Now}
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIP groups requests by the resolved client address.
func ClientIP() KeyFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// Limit returns middleware enforcing policy. Invalid policies disable limiting.
func (rl *RateLimiter) Limit(policy RateLimitPolicy) gin.HandlerFunc {
	if rl == nil || rl.store == nil || policy.Key == nil || policy.Limit <= 0 || policy.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if policy.Name == "" {
		policy.Name = "default"
	}

	return func(c *gin.Context) {
		id, ok := policy.Key(c)
		if !ok {
			c.Next()
			return
		}

		d, err := rl.decide(c.Request.Context(), policy, policy.Name+":"+id, rl.now())
		if err != nil {
			logger.WithContext(c.Request.Context(), rl.logger).Warn("rate limit check failed",
				zap.String("policy", policy.Name),
				zap.String("client_ip", logger.MaskIP(id)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))

		if !d.allowed {
			AbortTooManyRequests(c, rateLimitDetail, d.retryAfter)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) decide(ctx context.Context, policy RateLimitPolicy, key string, now time.Time) (decision, error) {
	if err := rl.store.TrimWindow(ctx, key, policy.Window, now); err != nil {
		return decision{}, err
	}
	count, err := rl.store.CountAttempts(ctx, key, policy.Window, now)
	if err != nil {
		return decision{}, err
	}
	oldest, found, err := rl.store.OldestAttempt(ctx, key, policy.Window, now)
	if err != nil {
		return decision{}, err
	}

	d := decision{limit: policy.Limit, reset: now.Add(policy.Window)}
	if found {
		d.reset = oldest.Add(policy.Window)
	}

	if count >= policy.Limit {
		d.retryAfter = max(d.reset.Sub(now), 0)
		return d, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return decision{}, err
	}
	d.allowed = true
	d.remaining = max(policy.Limit-count-1, 0)
	return d, nil
}
