package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/marketplace-auth/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestStateRepository_SetGetDelete(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewStateRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "otp:ann@x.com", "1234", 300*time.Second); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := repo.Get(ctx, "otp:ann@x.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "1234" {
		t.Fatalf("expected 1234, got %s", value)
	}
	if got := server.TTL("otp:ann@x.com"); got != 300*time.Second {
		t.Fatalf("expected 300s ttl, got %v", got)
	}

	if err := repo.Delete(ctx, "otp:ann@x.com", "opt_attempts:ann@x.com"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.Get(ctx, "otp:ann@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStateRepository_KeysExpire(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewStateRepository(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "otp_cooldown:ann@x.com", "true", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	exists, err := repo.Exists(ctx, "otp_cooldown:ann@x.com")
	if err != nil || !exists {
		t.Fatalf("expected key to exist, got %v err=%v", exists, err)
	}

	server.FastForward(61 * time.Second)

	exists, err = repo.Exists(ctx, "otp_cooldown:ann@x.com")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if exists {
		t.Fatal("expected key to expire")
	}
}

func TestStateRepository_TTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewStateRepository(client)
	ctx := context.Background()

	if _, found, err := repo.TTL(ctx, "otp_lock:missing"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	if err := server.Set("otp_lock:forever", "locked"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	remaining, found, err := repo.TTL(ctx, "otp_lock:forever")
	if err != nil || !found || remaining != 0 {
		t.Fatalf("expected live key without expiry, got ttl=%v found=%v err=%v", remaining, found, err)
	}

	if err := repo.Set(ctx, "otp_lock:ann@x.com", "locked", 30*time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	remaining, found, err = repo.TTL(ctx, "otp_lock:ann@x.com")
	if err != nil || !found {
		t.Fatalf("expected live lock, got found=%v err=%v", found, err)
	}
	if remaining <= 29*time.Minute || remaining > 30*time.Minute {
		t.Fatalf("expected ttl close to 30m, got %v", remaining)
	}
}

func TestStateRepository_IncrWithTTLOnlyOnCreate(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewStateRepository(client)
	ctx := context.Background()
	key := "otp_request_count:ann@x.com"

	n, err := repo.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("IncrWithTTL returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}

	server.FastForward(30 * time.Minute)

	n, err = repo.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("IncrWithTTL returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	if got := server.TTL(key); got != 30*time.Minute {
		t.Fatalf("expected window not to be extended, got %v", got)
	}

	server.FastForward(31 * time.Minute)

	n, err = repo.IncrWithTTL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("IncrWithTTL returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected counter to restart after expiry, got %d", n)
	}
}

func TestStateRepository_ConnectionError(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewStateRepository(client)
	server.Close()

	if _, err := repo.Get(context.Background(), "otp:ann@x.com"); err == nil || errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
