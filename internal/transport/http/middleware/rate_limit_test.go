package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	oldest    time.Time
	hasOldest bool
	oldestErr error
	recordErr error

	recordedKey string
	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	f.recordedKey = identifier
	f.recordCalls++
	return f.recordErr
}

func (f *fakeRateLimitStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, f.oldestErr
}

func newLimitedRouter(t *testing.T, store RateLimitStore, now time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(EnrichContext())
	router.Use(limiter.Limit(RateLimitPolicy{
		Name:   "api_ip",
		Limit:  5,
		Window: time.Minute,
		Key:    func(*gin.Context) (string, bool) { return "192.0.2.1", true },
	}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRateLimiter_AllowsBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)
	store := &fakeRateLimitStore{count: 2, oldest: oldest, hasOldest: true}

	rr := httptest.NewRecorder()
	newLimitedRouter(t, store, now).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.recordCalls != 1 || store.recordedKey != "api_ip:192.0.2.1" {
		t.Fatalf("unexpected record: calls=%d key=%q", store.recordCalls, store.recordedKey)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(oldest.Add(time.Minute).Unix(), 10) {
		t.Fatalf("unexpected reset header %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiter_BlocksAtLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{count: 5, oldest: now.Add(-30 * time.Second), hasOldest: true}

	rr := httptest.NewRecorder()
	newLimitedRouter(t, store, now).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record when blocked, got %d", store.recordCalls)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests || problem.RetryAfter != 30 {
		t.Fatalf("unexpected problem: %+v", problem)
	}
	if problem.Message != rateLimitDetail {
		t.Fatalf("unexpected message %q", problem.Message)
	}
	if problem.TraceID == "" {
		t.Fatalf("expected trace id in problem body")
	}
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{trimErr: errors.New("redis down")}

	rr := httptest.NewRecorder()
	newLimitedRouter(t, store, now).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record on failure, got %d", store.recordCalls)
	}
}

func TestRateLimiter_DisabledPolicyPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeRateLimitStore{count: 100}

	router := gin.New()
	router.Use(NewRateLimiter(store, nil).Limit(RateLimitPolicy{Limit: 0, Window: time.Minute, Key: ClientIP()}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
